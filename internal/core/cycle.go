package core

// Billing cycle arithmetic. A cycle runs from the repayment day of one month
// to the day before the repayment day of the next. The repayment day is
// clamped to the last day of short months at every boundary, so anchor 31
// starts a cycle on Feb 28 (or 29) rather than skipping February.

// ClampedDay returns the day-th date of the given month, or the month's last
// day when the month is shorter.
func ClampedDay(year, month, day int) Date {
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// nextMonth advances a (year, month) pair without day overflow.
func nextMonth(year, month int) (int, int) {
	if month == 12 {
		return year + 1, 1
	}
	return year, month + 1
}

func prevMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// CycleContaining returns the billing cycle that contains ref for the given
// repayment day. The cycle starts on the clamped repayment day of either
// ref's month or the previous one, and ends the day before the next cycle
// starts. Both ends are inclusive.
func CycleContaining(ref Date, repaymentDay int) (Cycle, error) {
	if repaymentDay < 1 || repaymentDay > 31 {
		return Cycle{}, ErrInvalidAnchor
	}
	if err := ref.Validate(); err != nil {
		return Cycle{}, err
	}

	start := ClampedDay(ref.Year(), ref.Month(), repaymentDay)
	if ref.Before(start) {
		py, pm := prevMonth(ref.Year(), ref.Month())
		start = ClampedDay(py, pm, repaymentDay)
	}

	ny, nm := nextMonth(start.Year(), start.Month())
	nextStart := ClampedDay(ny, nm, repaymentDay)
	return Cycle{Start: start, End: nextStart.AddDays(-1)}, nil
}

// CyclesOverlapping lists every cycle that overlaps [from, to], in order.
// Cycles are always emitted whole, so the first may start before from and the
// last may end after to; consecutive cycles are contiguous with no gaps.
// An empty range (from after to) yields no cycles.
func CyclesOverlapping(from, to Date, repaymentDay int) ([]Cycle, error) {
	if repaymentDay < 1 || repaymentDay > 31 {
		return nil, ErrInvalidAnchor
	}
	if from.After(to) {
		return nil, nil
	}

	cycle, err := CycleContaining(from, repaymentDay)
	if err != nil {
		return nil, err
	}
	var cycles []Cycle
	for !cycle.Start.After(to) {
		cycles = append(cycles, cycle)
		// The day after this cycle's end is the next cycle's start; month
		// advance is monotonic so the loop always terminates.
		cycle, err = CycleContaining(cycle.End.AddDays(1), repaymentDay)
		if err != nil {
			return nil, err
		}
	}
	return cycles, nil
}

// CycleRanges converts cycles to aggregation buckets.
func CycleRanges(cycles []Cycle) []Range {
	ranges := make([]Range, len(cycles))
	for i, c := range cycles {
		ranges[i] = Range{Start: c.Start, End: c.End}
	}
	return ranges
}
