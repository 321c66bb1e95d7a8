package backup

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/repository"
	"github.com/verte-zerg/studylog/internal/store"
)

func testRepo(t *testing.T) *repository.Repository {
	t.Helper()
	repo, err := repository.Open(context.Background(), store.NewMemoryStore(), repository.Options{
		Clock:  calendar.Fixed(time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	return repo
}

func seed(t *testing.T, repo *repository.Repository) {
	t.Helper()
	for _, in := range []model.IntervalInput{
		{Date: "2025-01-01", Subject: "민법", StartTime: "09:00", EndTime: "10:30", Completed: true, Note: "ch. 3"},
		{Date: "2025-01-02", Subject: "헌법", StartTime: "14:00", EndTime: "16:00"},
	} {
		if _, err := repo.AddInterval(in); err != nil {
			t.Fatalf("add interval: %v", err)
		}
	}
	if _, err := repo.AddScore(model.ScoreInput{Date: "2025-01-02", Subject: "민법", Score: 36, MaxScore: 40, CorrectCount: 18, TotalCount: 20}); err != nil {
		t.Fatalf("add score: %v", err)
	}
	if _, err := repo.CompleteRotation("민법", 1); err != nil {
		t.Fatalf("complete rotation: %v", err)
	}
}

func TestExportHeader(t *testing.T) {
	repo := testRepo(t)
	seed(t, repo)
	data, err := Export(repo.Snapshot(), time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	out := string(data)
	for _, want := range []string{`version: "1.0"`, "tool: studylog", "exported_at: 2025-01-02T10:00:00Z", "subject: 민법", "note: ch. 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("backup missing %q:\n%s", want, out)
		}
	}
}

func TestExportParseRestore(t *testing.T) {
	src := testRepo(t)
	seed(t, src)
	want := src.Snapshot()
	data, err := Export(want, time.Now())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(doc.Intervals, want.Intervals) || !reflect.DeepEqual(doc.ScoreRecords, want.ScoreRecords) {
		t.Fatalf("records differ after parse:\n got %+v %+v\nwant %+v %+v", doc.Intervals, doc.ScoreRecords, want.Intervals, want.ScoreRecords)
	}
	if !reflect.DeepEqual(doc.RotationTrackers, want.RotationTrackers) || doc.Streak != want.Streak {
		t.Fatalf("trackers or streak differ after parse")
	}

	dst := testRepo(t)
	warnings, err := dst.Restore(doc)
	if err != nil || len(warnings) != 0 {
		t.Fatalf("restore: %v %v", err, warnings)
	}
	if got := dst.Snapshot(); !reflect.DeepEqual(got.Intervals, want.Intervals) || got.ExamProfile != want.ExamProfile {
		t.Fatalf("restored document differs")
	}
}

func TestParseRejectsForeignBackups(t *testing.T) {
	cases := map[string]string{
		"version": "version: \"2.0\"\ntool: studylog\n",
		"tool":    "version: \"1.0\"\ntool: position\n",
		"syntax":  "version: [\n",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}
