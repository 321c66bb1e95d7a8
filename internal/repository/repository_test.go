package repository

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/stats"
	"github.com/verte-zerg/studylog/internal/store"
)

var errDiskFull = errors.New("disk full")

type flakyBackend struct {
	*store.MemoryStore
	mu    sync.Mutex
	fail  bool
	saves int
}

func (b *flakyBackend) Save(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errDiskFull
	}
	b.saves++
	return b.MemoryStore.Save(ctx, key, data)
}

func (b *flakyBackend) setFail(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = fail
}

func (b *flakyBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func testOptions() Options {
	return Options{
		Clock:  calendar.Fixed(time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC)),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Plan:   []string{"Law", "Tax"},
	}
}

func openRepo(t *testing.T, backend store.Backend, opts Options) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), backend, opts)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	return repo
}

func mustAdd(t *testing.T, repo *Repository, date, start, end string, completed bool) model.Interval {
	t.Helper()
	iv, err := repo.AddInterval(model.IntervalInput{
		Date:      date,
		Subject:   "Law",
		StartTime: start,
		EndTime:   end,
		Completed: completed,
	})
	if err != nil {
		t.Fatalf("add interval %s %s-%s: %v", date, start, end, err)
	}
	return iv
}

func TestOpenMissingDocumentStartsEmpty(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	if len(repo.Intervals()) != 0 || len(repo.Scores()) != 0 {
		t.Fatalf("expected empty repository")
	}
	if repo.ExamProfile() != DefaultExamProfile {
		t.Fatalf("unexpected profile %q", repo.ExamProfile())
	}
	if !repo.Streak().IsZero() {
		t.Fatalf("expected zero streak, got %+v", repo.Streak())
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	mem := store.NewMemoryStore()
	opts := testOptions()
	repo := openRepo(t, mem, opts)
	mustAdd(t, repo, "2025-01-01", "09:00", "11:00", true)
	mustAdd(t, repo, "2025-01-02", "09:00", "10:30", true)
	mustAdd(t, repo, "2025-01-03", "14:00", "15:00", false)
	if _, err := repo.AddScore(model.ScoreInput{Date: "2025-01-02", Subject: "Law", Score: 72}); err != nil {
		t.Fatalf("add score: %v", err)
	}
	if _, err := repo.CompleteRotation("Tax", 2); err != nil {
		t.Fatalf("complete rotation: %v", err)
	}
	if err := repo.SetExamProfile("second"); err != nil {
		t.Fatalf("set profile: %v", err)
	}
	want := repo.Snapshot()
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	saved, err := mem.Load(context.Background(), DefaultKey)
	if err != nil {
		t.Fatalf("load saved document: %v", err)
	}
	decoded, warnings, err := Decode(saved, model.DefaultRotationSlots)
	if err != nil || len(warnings) != 0 {
		t.Fatalf("decode saved document: %v %v", err, warnings)
	}
	again, err := Encode(decoded)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(saved, again) {
		t.Fatalf("re-serialized document differs:\n%s\n---\n%s", saved, again)
	}

	reopened := openRepo(t, mem, opts)
	if got := reopened.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("reloaded document differs:\n got %+v\nwant %+v", got, want)
	}
	if want.Metadata.Version != DocumentVersion || want.Metadata.LastSyncTimestamp != "2025-01-03T12:00:00Z" {
		t.Fatalf("unexpected metadata %+v", want.Metadata)
	}
}

func TestInvalidIntervalLeavesStoreUntouched(t *testing.T) {
	mem := store.NewMemoryStore()
	repo := openRepo(t, mem, testOptions())
	_, err := repo.AddInterval(model.IntervalInput{
		Date: "2025-01-01", Subject: "Law", StartTime: "10:00", EndTime: "10:00",
	})
	var verr *model.ValidationError
	if !errors.As(err, &verr) || verr.Field != "timeRange" {
		t.Fatalf("expected timeRange validation error, got %v", err)
	}
	if len(repo.Intervals()) != 0 {
		t.Fatalf("rejected interval was stored")
	}
	if _, err := mem.Load(context.Background(), DefaultKey); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected nothing persisted, got %v", err)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	in := model.IntervalInput{ID: "a", Date: "2025-01-01", Subject: "Law", StartTime: "09:00", EndTime: "10:00"}
	if _, err := repo.AddInterval(in); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := repo.AddInterval(in); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestUnknownIDsReportNotFound(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	if _, ok := repo.ToggleInterval("missing"); ok {
		t.Fatalf("toggle of unknown id reported found")
	}
	if repo.RemoveInterval("missing") {
		t.Fatalf("remove of unknown id reported found")
	}
	if _, found, err := repo.UpdateInterval("missing", model.IntervalUpdate{}); found || err != nil {
		t.Fatalf("update of unknown id: found=%v err=%v", found, err)
	}
	if repo.RemoveScore("missing") {
		t.Fatalf("remove of unknown score reported found")
	}
}

func TestRemovingLastDayMovesStreakBack(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	mustAdd(t, repo, "2025-01-01", "09:00", "10:00", true)
	mustAdd(t, repo, "2025-01-02", "09:00", "10:00", true)
	last := mustAdd(t, repo, "2025-01-03", "09:00", "10:00", true)
	if got := repo.Streak(); got.CurrentLength != 3 || got.LongestLength != 3 || got.TotalStudyDays != 3 {
		t.Fatalf("unexpected streak before removal %+v", got)
	}

	if !repo.RemoveInterval(last.ID) {
		t.Fatalf("remove reported not found")
	}
	want := model.StreakState{CurrentLength: 2, LongestLength: 2, LastStudyDate: "2025-01-02", TotalStudyDays: 2}
	if got := repo.Streak(); got != want {
		t.Fatalf("unexpected streak after removal %+v", got)
	}
	if warnings := Audit(repo.Snapshot(), repo.Plan()); len(warnings) != 0 {
		t.Fatalf("unexpected audit warnings %v", warnings)
	}
}

func TestToggleAndUpdateKeepStreakConsistent(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	mustAdd(t, repo, "2025-01-01", "09:00", "10:00", true)
	iv := mustAdd(t, repo, "2025-01-02", "09:00", "10:00", false)
	if got := repo.Streak().CurrentLength; got != 1 {
		t.Fatalf("planned interval counted as study: %d", got)
	}
	toggled, ok := repo.ToggleInterval(iv.ID)
	if !ok || !toggled.Completed {
		t.Fatalf("toggle failed: %+v %v", toggled, ok)
	}
	if got := repo.Streak(); got.CurrentLength != 2 || got.LastStudyDate != "2025-01-02" {
		t.Fatalf("unexpected streak after toggle %+v", got)
	}

	moved := "2025-01-05"
	updated, found, err := repo.UpdateInterval(iv.ID, model.IntervalUpdate{Date: &moved})
	if err != nil || !found {
		t.Fatalf("update: found=%v err=%v", found, err)
	}
	if updated.Date != moved {
		t.Fatalf("unexpected updated date %s", updated.Date)
	}
	want := model.StreakState{CurrentLength: 1, LongestLength: 1, LastStudyDate: moved, TotalStudyDays: 2}
	if got := repo.Streak(); got != want {
		t.Fatalf("unexpected streak after move %+v", got)
	}

	bad := "10:30"
	if _, _, err := repo.UpdateInterval(iv.ID, model.IntervalUpdate{EndTime: &bad, StartTime: &bad}); err == nil {
		t.Fatalf("expected invalid update to fail")
	}
	if got, _ := repo.Interval(iv.ID); got != updated {
		t.Fatalf("failed update changed the interval: %+v", got)
	}
}

func TestSaveFailureKeepsStateAndRetries(t *testing.T) {
	backend := &flakyBackend{MemoryStore: store.NewMemoryStore()}
	repo := openRepo(t, backend, testOptions())
	backend.setFail(true)
	mustAdd(t, repo, "2025-01-01", "09:00", "10:00", true)

	var perr *PersistenceError
	if err := repo.PersistError(); !errors.As(err, &perr) || !errors.Is(err, errDiskFull) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(repo.Intervals()) != 1 || repo.Streak().CurrentLength != 1 {
		t.Fatalf("in-memory state lost after failed save")
	}

	backend.setFail(false)
	if err := repo.Flush(); err != nil {
		t.Fatalf("flush after recovery: %v", err)
	}
	if _, err := backend.Load(context.Background(), DefaultKey); err != nil {
		t.Fatalf("document not saved after recovery: %v", err)
	}
}

func TestDelayedSavesCoalesce(t *testing.T) {
	backend := &flakyBackend{MemoryStore: store.NewMemoryStore()}
	opts := testOptions()
	opts.SaveDelay = time.Hour
	repo := openRepo(t, backend, opts)
	mustAdd(t, repo, "2025-01-01", "09:00", "10:00", true)
	mustAdd(t, repo, "2025-01-01", "10:00", "11:00", true)
	mustAdd(t, repo, "2025-01-02", "09:00", "10:00", true)
	if backend.saveCount() != 0 {
		t.Fatalf("expected no save before flush, got %d", backend.saveCount())
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if backend.saveCount() != 1 {
		t.Fatalf("expected one coalesced save, got %d", backend.saveCount())
	}
}

func TestRotationOperations(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	tracker, err := repo.Tracker("Law")
	if err != nil || len(tracker.Slots) != model.DefaultRotationSlots {
		t.Fatalf("unexpected tracker %+v %v", tracker, err)
	}
	tracker, err = repo.CompleteRotation("Law", 3)
	if err != nil {
		t.Fatalf("complete rotation: %v", err)
	}
	if !tracker.Slots[2].Completed || tracker.Slots[2].Date != "2025-01-03" || tracker.CompletedCount() != 1 {
		t.Fatalf("unexpected slot %+v", tracker.Slots[2])
	}
	if _, err := repo.CompleteRotation("Law", 8); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected out-of-range round error, got %v", err)
	}
	tracker, err = repo.ToggleRotation("Law", 3)
	if err != nil || tracker.Slots[2].Completed || tracker.Slots[2].Date != "" {
		t.Fatalf("toggle did not clear slot: %+v %v", tracker.Slots[2], err)
	}
	tracker, err = repo.AttributeRotationHours("Law", 1, 2.5)
	if err != nil || tracker.Slots[0].StudyHours != 2.5 {
		t.Fatalf("unexpected hours %+v %v", tracker.Slots[0], err)
	}
	if _, err := repo.AttributeRotationHours("Law", 1, -1); err == nil {
		t.Fatalf("expected negative hours to fail")
	}
	if _, err := repo.Tracker("  "); err == nil {
		t.Fatalf("expected empty subject to fail")
	}
}

func TestLegacyDocumentLoads(t *testing.T) {
	legacy := `{
  "timeBlocks": [
    {"id": 1735689600000, "date": "2025-01-01", "subject": "Law", "startTime": "09:00", "endTime": "11:00", "hours": 2, "completed": true, "detail": "ch1"},
    {"id": "bad", "date": "2025-13-01", "subject": "Law", "startTime": "09:00", "endTime": "10:00"}
  ],
  "mockScores": [{"id": 7, "date": "2025-01-02", "subject": "Law", "round": 1, "score": 72, "maxScore": 100}],
  "examType": "second",
  "streak": {"current": 1, "longest": 4, "lastStudyDate": null, "totalDays": 1},
  "rotationTrackers": {
    "Law": [true, false, true],
    "Civil": [{"round": 2, "completed": true, "date": "2025-01-01"}]
  }
}`
	mem := store.NewMemoryStore()
	if err := mem.Save(context.Background(), DefaultKey, []byte(legacy)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo := openRepo(t, mem, testOptions())

	intervals := repo.Intervals()
	if len(intervals) != 1 {
		t.Fatalf("expected one valid interval, got %d", len(intervals))
	}
	iv := intervals[0]
	if iv.ID != "1735689600000" || iv.DurationHours != 2 || iv.Note != "ch1" || !iv.Completed {
		t.Fatalf("unexpected legacy interval %+v", iv)
	}
	if scores := repo.Scores(); len(scores) != 1 || scores[0].ID != "7" {
		t.Fatalf("unexpected legacy scores %+v", scores)
	}
	if repo.ExamProfile() != "second" {
		t.Fatalf("unexpected profile %q", repo.ExamProfile())
	}
	if got := repo.Streak(); got != (model.StreakState{CurrentLength: 1, LongestLength: 4, TotalStudyDays: 1}) {
		t.Fatalf("unexpected legacy streak %+v", got)
	}
	trackers := repo.Trackers()
	if law := trackers["Law"]; len(law.Slots) != model.DefaultRotationSlots || law.CompletedCount() != 2 || !law.Slots[2].Completed {
		t.Fatalf("unexpected Law tracker %+v", law)
	}
	if civil := trackers["Civil"]; !civil.Slots[1].Completed || civil.Slots[1].Date != "2025-01-01" {
		t.Fatalf("unexpected Civil tracker %+v", civil)
	}

	kinds := map[WarningKind]bool{}
	for _, w := range repo.Audit() {
		kinds[w.Kind] = true
	}
	for _, k := range []WarningKind{WarnInvalidRecord, WarnOrphanTracker, WarnStreakMismatch} {
		if !kinds[k] {
			t.Fatalf("expected %s warning, got %v", k, repo.Audit())
		}
	}

	before, after := repo.RebuildStreak()
	if before.LastStudyDate != "" || after.LastStudyDate != "2025-01-01" || after.LongestLength != 1 {
		t.Fatalf("unexpected rebuild %+v -> %+v", before, after)
	}
}

func TestCorruptDocumentRefusesToOpen(t *testing.T) {
	mem := store.NewMemoryStore()
	if err := mem.Save(context.Background(), DefaultKey, []byte(`{"intervals": [`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := Open(context.Background(), mem, testOptions()); err == nil {
		t.Fatalf("expected corrupt document to fail")
	}
}

func TestAuditFindsOverlapsAndOrphanScores(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	mustAdd(t, repo, "2025-01-01", "09:00", "11:00", true)
	mustAdd(t, repo, "2025-01-01", "10:30", "12:00", true)
	if _, err := repo.AddScore(model.ScoreInput{Date: "2025-01-02", Subject: "Economics", Score: 50}); err != nil {
		t.Fatalf("add score: %v", err)
	}
	kinds := map[WarningKind]int{}
	for _, w := range repo.Audit() {
		kinds[w.Kind]++
	}
	if kinds[WarnOverlap] != 1 || kinds[WarnOrphanScore] != 1 || kinds[WarnStreakMismatch] != 0 {
		t.Fatalf("unexpected audit result %v", kinds)
	}
}

func TestRestoreRevalidates(t *testing.T) {
	mem := store.NewMemoryStore()
	repo := openRepo(t, mem, testOptions())
	doc := Document{
		Intervals: []model.Interval{
			{ID: "x", Date: "2025-01-02", Subject: "Law", StartTime: "09:00", EndTime: "10:00", DurationHours: 1, Completed: true},
			{ID: "y", Date: "2025-01-02", Subject: "Law", StartTime: "11:00", EndTime: "10:00", DurationHours: 1},
		},
		ExamProfile: "second",
	}
	warnings, err := repo.Restore(doc)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Kind != WarnInvalidRecord {
		t.Fatalf("unexpected restore warnings %v", warnings)
	}
	if len(repo.Intervals()) != 1 || repo.ExamProfile() != "second" {
		t.Fatalf("unexpected restored state")
	}
	if _, err := mem.Load(context.Background(), DefaultKey); err != nil {
		t.Fatalf("restore was not saved: %v", err)
	}
}

func TestRebuildStreakRepairsStaleCache(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	doc := Document{
		Intervals: []model.Interval{
			{ID: "a", Date: "2025-01-01", Subject: "Law", StartTime: "09:00", EndTime: "10:00", DurationHours: 1, Completed: true},
			{ID: "b", Date: "2025-01-02", Subject: "Law", StartTime: "09:00", EndTime: "10:00", DurationHours: 1, Completed: true},
		},
		Streak: model.StreakState{CurrentLength: 1, LongestLength: 1, LastStudyDate: "2025-01-01", TotalStudyDays: 1},
	}
	if _, err := repo.Restore(doc); err != nil {
		t.Fatalf("restore: %v", err)
	}
	mismatch := false
	for _, w := range repo.Audit() {
		if w.Kind == WarnStreakMismatch {
			mismatch = true
		}
	}
	if !mismatch {
		t.Fatalf("expected stale streak to be reported")
	}
	before, after := repo.RebuildStreak()
	if before.LastStudyDate != "2025-01-01" {
		t.Fatalf("unexpected before state %+v", before)
	}
	want := model.StreakState{CurrentLength: 2, LongestLength: 2, LastStudyDate: "2025-01-02", TotalStudyDays: 2}
	if after != want || repo.Streak() != want {
		t.Fatalf("rebuilt streak %+v, want %+v", after, want)
	}
}

func TestProfileScoresAndReset(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	if err := repo.SetExamProfile("  "); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error for blank profile, got %v", err)
	}
	if err := repo.SetExamProfile("second"); err != nil {
		t.Fatalf("set profile: %v", err)
	}
	s, err := repo.AddScore(model.ScoreInput{Date: "2025-01-02", Subject: "Law", Score: 70})
	if err != nil {
		t.Fatalf("add score: %v", err)
	}
	if len(repo.ScoresFor("Law")) != 1 {
		t.Fatalf("expected one Law score")
	}
	if !repo.RemoveScore(s.ID) || repo.RemoveScore(s.ID) {
		t.Fatalf("remove score should succeed once")
	}
	mustAdd(t, repo, "2025-01-03", "09:00", "10:00", true)
	repo.Reset()
	if len(repo.Intervals()) != 0 || repo.Streak() != (model.StreakState{}) {
		t.Fatalf("reset left state behind")
	}
	if repo.ExamProfile() != "second" {
		t.Fatalf("reset should keep the exam profile, got %q", repo.ExamProfile())
	}
}

func TestOutOfOrderDaysRaiseLongest(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	for _, day := range []string{"2025-01-10", "2025-01-07", "2025-01-08"} {
		mustAdd(t, repo, day, "09:00", "10:00", true)
	}
	want := model.StreakState{CurrentLength: 1, LongestLength: 2, LastStudyDate: "2025-01-10", TotalStudyDays: 3}
	if got := repo.Streak(); got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if got := stats.DeriveStreak(repo.Intervals()); got != want {
		t.Fatalf("replay gives %+v, want %+v", got, want)
	}
	if warnings := repo.Audit(); len(warnings) != 0 {
		t.Fatalf("unexpected audit warnings %v", warnings)
	}
}

func TestRemovingFromOlderRecordRunRederivesLongest(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	var middle model.Interval
	for _, day := range []string{"2025-01-01", "2025-01-02", "2025-01-03", "2025-01-10"} {
		iv := mustAdd(t, repo, day, "09:00", "10:00", true)
		if day == "2025-01-02" {
			middle = iv
		}
	}
	if got := repo.Streak().LongestLength; got != 3 {
		t.Fatalf("expected longest 3 before removal, got %d", got)
	}
	if !repo.RemoveInterval(middle.ID) {
		t.Fatalf("remove reported not found")
	}
	if got, want := repo.Streak(), stats.DeriveStreak(repo.Intervals()); got != want {
		t.Fatalf("cached %+v, replay %+v", got, want)
	}
}

func TestAuditComparesLongest(t *testing.T) {
	repo := openRepo(t, store.NewMemoryStore(), testOptions())
	doc := Document{
		Intervals: []model.Interval{
			{ID: "a", Date: "2025-01-01", Subject: "Law", StartTime: "09:00", EndTime: "10:00", DurationHours: 1, Completed: true},
			{ID: "b", Date: "2025-01-02", Subject: "Law", StartTime: "09:00", EndTime: "10:00", DurationHours: 1, Completed: true},
		},
		Streak: model.StreakState{CurrentLength: 2, LongestLength: 5, LastStudyDate: "2025-01-02", TotalStudyDays: 2},
	}
	if _, err := repo.Restore(doc); err != nil {
		t.Fatalf("restore: %v", err)
	}
	var found []IntegrityWarning
	for _, w := range repo.Audit() {
		if w.Kind == WarnStreakMismatch {
			found = append(found, w)
		}
	}
	if len(found) != 1 || !strings.Contains(found[0].Message, "longest=5") {
		t.Fatalf("expected a longest mismatch, got %v", found)
	}
}

func TestLoadedStreakSettlesOnLog(t *testing.T) {
	mem := store.NewMemoryStore()
	doc := Document{
		Intervals: []model.Interval{
			{ID: "a", Date: "2025-01-01", Subject: "Law", StartTime: "09:00", EndTime: "10:00", DurationHours: 1, Completed: true},
			{ID: "b", Date: "2025-01-02", Subject: "Law", StartTime: "09:00", EndTime: "10:00", DurationHours: 1, Completed: true},
		},
		Streak: model.StreakState{CurrentLength: 5, LongestLength: 5, LastStudyDate: "2025-01-05", TotalStudyDays: 5},
	}
	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := mem.Save(context.Background(), DefaultKey, data); err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo := openRepo(t, mem, testOptions())
	want := model.StreakState{CurrentLength: 2, LongestLength: 2, LastStudyDate: "2025-01-02", TotalStudyDays: 2}
	if got := repo.Streak(); got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if warnings := repo.Audit(); len(warnings) != 0 {
		t.Fatalf("unexpected audit warnings %v", warnings)
	}

	if _, err := repo.Restore(doc); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := repo.Streak(); got != want {
		t.Fatalf("restore kept stale streak %+v", got)
	}
}
