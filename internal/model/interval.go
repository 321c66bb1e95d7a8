package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/studylog/internal/calendar"
)

const (
	intervalEntity = "interval"
	maxHours       = 24.0
)

// IntervalInput is the raw input for a new interval. A zero DurationHours
// means the duration is derived from the times.
type IntervalInput struct {
	ID            string
	Date          string
	Subject       string
	StartTime     string
	EndTime       string
	DurationHours float64
	Completed     bool
	Note          string
}

// NewInterval validates input and builds an interval. Nothing is returned
// on failure except the error.
func NewInterval(in IntervalInput) (Interval, error) {
	if !calendar.Valid(in.Date) {
		return Interval{}, invalid(intervalEntity, "date", in.Date, "expected YYYY-MM-DD")
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return Interval{}, invalid(intervalEntity, "subject", nil, "required")
	}
	start, err := ParseClock(in.StartTime)
	if err != nil {
		return Interval{}, invalid(intervalEntity, "startTime", in.StartTime, "expected HH:MM")
	}
	end, err := ParseClock(in.EndTime)
	if err != nil {
		return Interval{}, invalid(intervalEntity, "endTime", in.EndTime, "expected HH:MM")
	}
	if start >= end {
		return Interval{}, invalid(intervalEntity, "timeRange", in.StartTime+"-"+in.EndTime, "start must be before end")
	}
	hours := in.DurationHours
	if hours == 0 {
		hours = float64(end-start) / 60
	}
	if hours <= 0 || hours > maxHours {
		return Interval{}, invalid(intervalEntity, "durationHours", hours, "must be in (0, 24]")
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return Interval{
		ID:            id,
		Date:          in.Date,
		Subject:       subject,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		DurationHours: hours,
		Completed:     in.Completed,
		Note:          strings.TrimSpace(in.Note),
	}, nil
}

// ParseClock parses HH:MM into minutes after midnight.
func ParseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	h, okH := twoDigits(value[0:2])
	m, okM := twoDigits(value[3:5])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return h*60 + m, nil
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// DurationHours returns end minus start in hours.
func DurationHours(start, end string) (float64, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, invalid(intervalEntity, "startTime", start, "expected HH:MM")
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, invalid(intervalEntity, "endTime", end, "expected HH:MM")
	}
	if s >= e {
		return 0, invalid(intervalEntity, "timeRange", start+"-"+end, "start must be before end")
	}
	return float64(e-s) / 60, nil
}

// Input returns the interval as constructor input.
func (iv Interval) Input() IntervalInput {
	return IntervalInput{
		ID:            iv.ID,
		Date:          iv.Date,
		Subject:       iv.Subject,
		StartTime:     iv.StartTime,
		EndTime:       iv.EndTime,
		DurationHours: iv.DurationHours,
		Completed:     iv.Completed,
		Note:          iv.Note,
	}
}

// IntervalUpdate names the fields an update may change. Nil fields are kept.
type IntervalUpdate struct {
	Date          *string  `json:"date,omitempty"`
	Subject       *string  `json:"subject,omitempty"`
	StartTime     *string  `json:"startTime,omitempty"`
	EndTime       *string  `json:"endTime,omitempty"`
	DurationHours *float64 `json:"durationHours,omitempty"`
	Completed     *bool    `json:"completed,omitempty"`
	Note          *string  `json:"note,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u IntervalUpdate) IsEmpty() bool {
	return u == IntervalUpdate{}
}

// ParseIntervalUpdate decodes a JSON update and rejects unknown fields.
func ParseIntervalUpdate(data []byte) (IntervalUpdate, error) {
	var u IntervalUpdate
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		return IntervalUpdate{}, invalid(intervalEntity, "update", nil, err.Error())
	}
	return u, nil
}

// Apply returns a re-validated copy with the update applied. When the times
// change and no duration is given, the duration is derived again.
func (iv Interval) Apply(u IntervalUpdate) (Interval, error) {
	in := iv.Input()
	if u.Date != nil {
		in.Date = *u.Date
	}
	if u.Subject != nil {
		in.Subject = *u.Subject
	}
	timesChanged := false
	if u.StartTime != nil && *u.StartTime != in.StartTime {
		in.StartTime = *u.StartTime
		timesChanged = true
	}
	if u.EndTime != nil && *u.EndTime != in.EndTime {
		in.EndTime = *u.EndTime
		timesChanged = true
	}
	if timesChanged {
		in.DurationHours = 0
	}
	if u.DurationHours != nil {
		if *u.DurationHours == 0 {
			return Interval{}, invalid(intervalEntity, "durationHours", 0.0, "must be in (0, 24]")
		}
		in.DurationHours = *u.DurationHours
	}
	if u.Completed != nil {
		in.Completed = *u.Completed
	}
	if u.Note != nil {
		in.Note = *u.Note
	}
	return NewInterval(in)
}
