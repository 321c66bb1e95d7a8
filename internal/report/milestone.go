package report

import "math"

// Milestones are the cumulative hour marks celebrated on the way to the
// profile target.
var Milestones = []float64{250, 500, 750, 1000, 1200}

// Milestone is the next cumulative hour mark.
type Milestone struct {
	Target    float64
	Current   float64
	Remaining float64
	// DaysNeeded is 0 when the pace is unknown.
	DaysNeeded int
	Reached    bool
}

// NextMilestone finds the first mark above total. dailyAverage is the mean
// completed hours per study day. Past the last mark the profile target is
// reported as reached.
func NextMilestone(total, dailyAverage float64, b Benchmark) Milestone {
	for _, mark := range Milestones {
		if mark <= total {
			continue
		}
		m := Milestone{Target: mark, Current: total, Remaining: mark - total}
		if dailyAverage > 0 {
			m.DaysNeeded = int(math.Ceil(m.Remaining / dailyAverage))
		}
		return m
	}
	return Milestone{Target: b.TargetTotalHours, Current: total, Reached: true}
}
