package sim

// VTime is a point in virtual time, in the unit of second. Virtual time is
// non-negative and advances monotonically within one Scheduler.
type VTime float64
