package model

// DefaultRotationSlots is the number of passes tracked per subject.
const DefaultRotationSlots = 7

// NewRotationTracker builds a tracker with slots empty passes.
func NewRotationTracker(subject string, slots int) RotationTracker {
	if slots <= 0 {
		slots = DefaultRotationSlots
	}
	t := RotationTracker{Subject: subject, Slots: make([]RotationSlot, slots)}
	for i := range t.Slots {
		t.Slots[i].Round = i + 1
	}
	return t
}

func (t *RotationTracker) slot(round int) *RotationSlot {
	if round < 1 || round > len(t.Slots) {
		return nil
	}
	return &t.Slots[round-1]
}

// Complete marks a round done on day. Other slots are untouched.
func (t *RotationTracker) Complete(round int, day string) bool {
	s := t.slot(round)
	if s == nil {
		return false
	}
	s.Completed = true
	s.Date = day
	return true
}

// Toggle flips a round, stamping day on completion and clearing it otherwise.
func (t *RotationTracker) Toggle(round int, day string) bool {
	s := t.slot(round)
	if s == nil {
		return false
	}
	s.Completed = !s.Completed
	if s.Completed {
		s.Date = day
	} else {
		s.Date = ""
	}
	return true
}

// AttributeHours adds study hours to a round.
func (t *RotationTracker) AttributeHours(round int, hours float64) bool {
	s := t.slot(round)
	if s == nil || hours < 0 {
		return false
	}
	s.StudyHours += hours
	return true
}

// CompletedCount returns the number of finished passes.
func (t RotationTracker) CompletedCount() int {
	n := 0
	for _, s := range t.Slots {
		if s.Completed {
			n++
		}
	}
	return n
}

// ProgressPercent returns completed slots over total slots.
func (t RotationTracker) ProgressPercent() float64 {
	if len(t.Slots) == 0 {
		return 0
	}
	return float64(t.CompletedCount()) / float64(len(t.Slots)) * 100
}

// NextRotation returns the lowest incomplete round, or len(slots)+1 when
// every pass is done.
func (t RotationTracker) NextRotation() int {
	for _, s := range t.Slots {
		if !s.Completed {
			return s.Round
		}
	}
	return len(t.Slots) + 1
}

// Overlay replays saved slots onto the tracker by round. Rounds outside the
// tracker are ignored.
func (t *RotationTracker) Overlay(saved []RotationSlot) {
	for i, s := range saved {
		round := s.Round
		if round == 0 {
			round = i + 1
		}
		dst := t.slot(round)
		if dst == nil {
			continue
		}
		dst.Completed = s.Completed
		dst.Date = s.Date
		dst.StudyHours = s.StudyHours
	}
}

// Clone returns a deep copy.
func (t RotationTracker) Clone() RotationTracker {
	out := RotationTracker{Subject: t.Subject, Slots: make([]RotationSlot, len(t.Slots))}
	copy(out.Slots, t.Slots)
	return out
}
