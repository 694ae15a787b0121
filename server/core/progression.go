package core

// Travel-based progression: every full unit of accumulated horizontal
// distance pays out a fixed amount of experience on the next loop tick.
const (
	xpTravelUnit    = 10.0
	xpPerTravelUnit = 5
	xpPerChat       = 2
)

// XPForLevel returns the total experience required to reach a level. The
// curve is quadratic; level 1 is free.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return 50*n*n + 50*n
}

// LevelForXP returns the level a total experience amount corresponds to.
func LevelForXP(xp int) int {
	level := 1
	for xp >= XPForLevel(level+1) {
		level++
	}
	return level
}
