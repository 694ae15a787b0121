package components

import "github.com/yohamta/donburi"

// historyCapacity is the fixed length of the position history ring.
const historyCapacity = 5

// HistorySample is one recorded local-player position on the XZ plane.
type HistorySample struct {
	X, Z float64
	Time int64 // Unix ms
}

// PositionHistoryData is a fixed-length ring of the local player's own
// recent positions, read only by the anomaly guard. The oldest sample is
// evicted once the ring is full.
type PositionHistoryData struct {
	samples [historyCapacity]HistorySample
	head    int // index of the next write
	count   int
}

var PositionHistory = donburi.NewComponentType[PositionHistoryData]()

// Push appends a sample, evicting the oldest when full.
func (h *PositionHistoryData) Push(s HistorySample) {
	h.samples[h.head] = s
	h.head = (h.head + 1) % historyCapacity
	if h.count < historyCapacity {
		h.count++
	}
}

// Len returns how many samples are recorded, at most the ring capacity.
func (h *PositionHistoryData) Len() int { return h.count }

// At returns the i-th most recent sample; At(0) is the newest. It panics if
// i is out of range, matching slice indexing semantics.
func (h *PositionHistoryData) At(i int) HistorySample {
	if i < 0 || i >= h.count {
		panic("history index out of range")
	}
	idx := (h.head - 1 - i + 2*historyCapacity) % historyCapacity
	return h.samples[idx]
}

// ReplaceNewest overwrites the most recent sample, used when the anomaly
// guard clamps the latest position.
func (h *PositionHistoryData) ReplaceNewest(s HistorySample) {
	if h.count == 0 {
		return
	}
	idx := (h.head - 1 + historyCapacity) % historyCapacity
	h.samples[idx] = s
}
