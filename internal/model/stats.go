package model

// Mode selects the period used for bucketing.
type Mode string

const (
	ModeDaily  Mode = "daily"
	ModeWeekly Mode = "weekly"
)

const (
	HourSlots    = 24
	WeekdaySlots = 7
)

// SlotCounts is a fixed-length count array. Hour-of-day arrays have 24 slots,
// weekday arrays have 7 (0=Monday..6=Sunday).
type SlotCounts []int

// NewSlotCounts returns a zeroed array with n slots.
func NewSlotCounts(n int) SlotCounts {
	return make(SlotCounts, n)
}

// Total returns the sum of all slots.
func (s SlotCounts) Total() int {
	total := 0
	for _, c := range s {
		total += c
	}
	return total
}

// Max returns the largest slot count, 0 for an empty array.
func (s SlotCounts) Max() int {
	max := 0
	for _, c := range s {
		if c > max {
			max = c
		}
	}
	return max
}

// StatsResult is the output of one bucketizer run.
type StatsResult struct {
	Mode             Mode
	HighCounts       SlotCounts
	LowCounts        SlotCounts
	PeriodsProcessed int
}
