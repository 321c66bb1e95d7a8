package model

import (
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/studylog/internal/calendar"
)

const scoreEntity = "score"

// ScoreInput is the raw input for a new score. Zero Round defaults to 1 and
// zero MaxScore to 100. Zero Accuracy is derived.
type ScoreInput struct {
	ID           string
	Date         string
	Subject      string
	Round        int
	Score        float64
	MaxScore     float64
	CorrectCount int
	TotalCount   int
	Accuracy     float64
	Notes        string
}

// NewScore validates input and builds a score record.
func NewScore(in ScoreInput) (Score, error) {
	if !calendar.Valid(in.Date) {
		return Score{}, invalid(scoreEntity, "date", in.Date, "expected YYYY-MM-DD")
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return Score{}, invalid(scoreEntity, "subject", nil, "required")
	}
	round := in.Round
	if round == 0 {
		round = 1
	}
	if round < 1 || round > 10 {
		return Score{}, invalid(scoreEntity, "round", round, "must be between 1 and 10")
	}
	maxScore := in.MaxScore
	if maxScore == 0 {
		maxScore = 100
	}
	if maxScore < 1 || maxScore > 1000 {
		return Score{}, invalid(scoreEntity, "maxScore", maxScore, "must be between 1 and 1000")
	}
	if in.Score < 0 || in.Score > 1000 {
		return Score{}, invalid(scoreEntity, "score", in.Score, "must be between 0 and 1000")
	}
	if in.Score > maxScore {
		return Score{}, invalid(scoreEntity, "score", in.Score, "cannot exceed maxScore")
	}
	if in.CorrectCount < 0 || in.CorrectCount > 500 {
		return Score{}, invalid(scoreEntity, "correctCount", in.CorrectCount, "must be between 0 and 500")
	}
	if in.TotalCount < 0 || in.TotalCount > 500 {
		return Score{}, invalid(scoreEntity, "totalCount", in.TotalCount, "must be between 0 and 500")
	}
	accuracy := in.Accuracy
	if accuracy == 0 {
		if in.TotalCount > 0 {
			accuracy = float64(in.CorrectCount) / float64(in.TotalCount) * 100
		} else {
			accuracy = in.Score / maxScore * 100
		}
	}
	if accuracy < 0 || accuracy > 100 {
		return Score{}, invalid(scoreEntity, "accuracy", accuracy, "must be between 0 and 100")
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return Score{
		ID:           id,
		Date:         in.Date,
		Subject:      subject,
		Round:        round,
		Score:        in.Score,
		MaxScore:     maxScore,
		CorrectCount: in.CorrectCount,
		TotalCount:   in.TotalCount,
		Accuracy:     accuracy,
		Notes:        strings.TrimSpace(in.Notes),
	}, nil
}

// Percent returns score / maxScore * 100.
func (s Score) Percent() float64 {
	if s.MaxScore <= 0 {
		return 0
	}
	return s.Score / s.MaxScore * 100
}

// Input returns the score as constructor input.
func (s Score) Input() ScoreInput {
	return ScoreInput{
		ID:           s.ID,
		Date:         s.Date,
		Subject:      s.Subject,
		Round:        s.Round,
		Score:        s.Score,
		MaxScore:     s.MaxScore,
		CorrectCount: s.CorrectCount,
		TotalCount:   s.TotalCount,
		Accuracy:     s.Accuracy,
		Notes:        s.Notes,
	}
}
