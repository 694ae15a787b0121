package components

import "testing"

func TestPositionHistoryRingEviction(t *testing.T) {
	var h PositionHistoryData
	for i := 0; i < 7; i++ {
		h.Push(HistorySample{X: float64(i), Time: int64(i)})
	}

	if h.Len() != 5 {
		t.Fatalf("len = %d, want capacity 5", h.Len())
	}
	if got := h.At(0).X; got != 6 {
		t.Fatalf("newest sample X = %v, want 6", got)
	}
	if got := h.At(4).X; got != 2 {
		t.Fatalf("oldest retained sample X = %v, want 2 (0 and 1 evicted)", got)
	}
}

func TestPositionHistoryReplaceNewest(t *testing.T) {
	var h PositionHistoryData
	h.Push(HistorySample{X: 1})
	h.Push(HistorySample{X: 10})

	h.ReplaceNewest(HistorySample{X: 3})

	if got := h.At(0).X; got != 3 {
		t.Fatalf("newest after replace = %v, want 3", got)
	}
	if got := h.At(1).X; got != 1 {
		t.Fatalf("second newest = %v, want untouched 1", got)
	}
}

func TestPositionHistoryReplaceOnEmpty(t *testing.T) {
	var h PositionHistoryData
	h.ReplaceNewest(HistorySample{X: 3}) // must not panic
	if h.Len() != 0 {
		t.Fatalf("replace on empty ring should be a no-op")
	}
}
