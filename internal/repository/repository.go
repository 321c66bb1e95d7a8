// Package repository owns the study document. It applies validated
// mutations, keeps the cached streak consistent with the interval log, and
// persists the whole document after every change.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/stats"
	"github.com/verte-zerg/studylog/internal/store"
	"github.com/verte-zerg/studylog/internal/streak"
)

// DefaultKey is the storage key of the study document.
const DefaultKey = "studyData"

// DefaultExamProfile is used when a document names no profile.
const DefaultExamProfile = "first"

// PersistenceError reports a failed save. The in-memory state stays
// authoritative and the next mutation or Flush retries.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Options configure a repository.
type Options struct {
	Key           string
	Clock         calendar.Clock
	Logger        *slog.Logger
	RotationSlots int
	ScanDays      int
	// SaveDelay coalesces saves; zero saves synchronously after each mutation.
	SaveDelay   time.Duration
	Plan        []string
	ExamProfile string
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.Clock == nil {
		o.Clock = calendar.System
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.RotationSlots <= 0 {
		o.RotationSlots = model.DefaultRotationSlots
	}
	if o.ScanDays <= 0 {
		o.ScanDays = streak.DefaultScanDays
	}
	if o.ExamProfile == "" {
		o.ExamProfile = DefaultExamProfile
	}
	return o
}

// Repository is safe for concurrent use.
type Repository struct {
	mu      sync.Mutex
	backend store.Backend
	opts    Options
	logger  *slog.Logger

	intervals   []model.Interval
	scores      []model.Score
	trackers    map[string]model.RotationTracker
	streak      model.StreakState
	examProfile string
	meta        Metadata

	reconciler   *streak.Reconciler
	loadWarnings []IntegrityWarning

	dirty      bool
	timer      *time.Timer
	persistErr error
	closed     bool
}

// logSource answers streak questions from the live interval log. Callers
// hold the repository lock.
type logSource struct {
	r *Repository
}

func (s logSource) HasStudied(day string) bool {
	return stats.HasStudied(s.r.intervals, day)
}

func (s logSource) StudyDayCount() int {
	return len(stats.StudyDays(s.r.intervals))
}

// Open loads the document stored under opts.Key. A missing document starts
// empty; an unreadable one is an error so it is never overwritten.
func Open(ctx context.Context, backend store.Backend, opts Options) (*Repository, error) {
	opts = opts.withDefaults()
	r := &Repository{
		backend:  backend,
		opts:     opts,
		logger:   opts.Logger,
		trackers: map[string]model.RotationTracker{},
	}
	r.reconciler = streak.NewReconciler(&r.streak, logSource{r: r}, opts.ScanDays, opts.Logger)

	data, err := backend.Load(ctx, opts.Key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.examProfile = opts.ExamProfile
		r.meta = Metadata{Version: DocumentVersion}
		r.logger.Debug("starting with empty document", slog.String("key", opts.Key))
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", opts.Key, err)
	}

	doc, warnings, err := Decode(data, opts.RotationSlots)
	if err != nil {
		return nil, err
	}
	r.install(doc)
	r.settleStreak()
	r.loadWarnings = warnings
	for _, w := range warnings {
		r.logger.Warn("dropped record while loading", slog.String("kind", string(w.Kind)),
			slog.String("ref", w.Ref), slog.String("detail", w.Message))
	}
	r.logger.Debug("document loaded",
		slog.Int("intervals", len(r.intervals)),
		slog.Int("scores", len(r.scores)),
		slog.Int("trackers", len(r.trackers)))
	return r, nil
}

func (r *Repository) install(doc Document) {
	r.intervals = append([]model.Interval(nil), doc.Intervals...)
	r.scores = append([]model.Score(nil), doc.ScoreRecords...)
	r.trackers = make(map[string]model.RotationTracker, len(doc.RotationTrackers))
	for name, t := range doc.RotationTrackers {
		r.trackers[name] = t.Clone()
	}
	r.streak = doc.Streak
	r.examProfile = doc.ExamProfile
	if r.examProfile == "" {
		r.examProfile = r.opts.ExamProfile
	}
	r.meta = doc.Metadata
	if r.meta.Version == "" {
		r.meta.Version = DocumentVersion
	}
}

// settleStreak moves a stored streak off a last study day the log no
// longer supports. Other drift is left for Audit and RebuildStreak.
func (r *Repository) settleStreak() {
	before := r.streak
	if r.reconciler.ReconcileAfterRemoval() {
		r.logger.Info("stored streak did not match the log",
			slog.String("lastStudyDate", before.LastStudyDate),
			slog.String("now", r.streak.LastStudyDate),
			slog.Int("current", r.streak.CurrentLength))
	}
}

func (r *Repository) indexOfInterval(id string) int {
	for i := range r.intervals {
		if r.intervals[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) idInUse(id string) bool {
	if r.indexOfInterval(id) >= 0 {
		return true
	}
	for _, s := range r.scores {
		if s.ID == id {
			return true
		}
	}
	return false
}

// AddInterval validates and appends an interval. Nothing changes on error.
func (r *Repository) AddInterval(in model.IntervalInput) (model.Interval, error) {
	iv, err := model.NewInterval(in)
	if err != nil {
		return model.Interval{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idInUse(iv.ID) {
		return model.Interval{}, model.NewValidationError("interval", "id", iv.ID, "already exists")
	}
	r.intervals = append(r.intervals, iv)
	if iv.Completed {
		r.reconciler.RecordStudy(iv.Date)
	}
	r.logger.Debug("interval added", slog.String("id", iv.ID), slog.String("date", iv.Date),
		slog.String("subject", iv.Subject), slog.Float64("hours", iv.DurationHours))
	r.persistLocked()
	return iv, nil
}

// ToggleInterval flips the completed flag. It returns false when id is
// unknown.
func (r *Repository) ToggleInterval(id string) (model.Interval, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOfInterval(id)
	if i < 0 {
		return model.Interval{}, false
	}
	r.intervals[i].Completed = !r.intervals[i].Completed
	iv := r.intervals[i]
	if iv.Completed {
		r.reconciler.RecordStudy(iv.Date)
	} else {
		r.reconciler.ReconcileAfterRemoval()
	}
	r.persistLocked()
	return iv, true
}

// UpdateInterval applies a partial update. found is false when id is
// unknown; a validation error leaves the interval unchanged.
func (r *Repository) UpdateInterval(id string, u model.IntervalUpdate) (iv model.Interval, found bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOfInterval(id)
	if i < 0 {
		return model.Interval{}, false, nil
	}
	updated, err := r.intervals[i].Apply(u)
	if err != nil {
		return model.Interval{}, true, err
	}
	r.intervals[i] = updated
	r.reconciler.ReconcileAfterRemoval()
	if updated.Completed {
		r.reconciler.RecordStudy(updated.Date)
	}
	r.persistLocked()
	return updated, true, nil
}

// RemoveInterval deletes an interval and reconciles the streak. It returns
// false when id is unknown.
func (r *Repository) RemoveInterval(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOfInterval(id)
	if i < 0 {
		return false
	}
	removed := r.intervals[i]
	r.intervals = append(r.intervals[:i], r.intervals[i+1:]...)
	if removed.Completed {
		r.reconciler.ReconcileAfterRemoval()
	}
	r.logger.Debug("interval removed", slog.String("id", id), slog.String("date", removed.Date))
	r.persistLocked()
	return true
}

// AddScore validates and appends a mock score.
func (r *Repository) AddScore(in model.ScoreInput) (model.Score, error) {
	s, err := model.NewScore(in)
	if err != nil {
		return model.Score{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idInUse(s.ID) {
		return model.Score{}, model.NewValidationError("score", "id", s.ID, "already exists")
	}
	r.scores = append(r.scores, s)
	r.persistLocked()
	return s, nil
}

// RemoveScore deletes a score. It returns false when id is unknown.
func (r *Repository) RemoveScore(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.scores {
		if s.ID == id {
			r.scores = append(r.scores[:i], r.scores[i+1:]...)
			r.persistLocked()
			return true
		}
	}
	return false
}

// Tracker returns the tracker for subject, creating an empty one on first
// use.
func (r *Repository) Tracker(subject string) (model.RotationTracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, created, err := r.trackerLocked(subject)
	if err != nil {
		return model.RotationTracker{}, err
	}
	if created {
		r.persistLocked()
	}
	return t.Clone(), nil
}

func (r *Repository) trackerLocked(subject string) (t model.RotationTracker, created bool, err error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return model.RotationTracker{}, false, model.NewValidationError("rotation", "subject", nil, "required")
	}
	t, ok := r.trackers[subject]
	if !ok {
		t = model.NewRotationTracker(subject, r.opts.RotationSlots)
		r.trackers[subject] = t
	}
	return t, !ok, nil
}

func (r *Repository) mutateTracker(subject string, round int, fn func(*model.RotationTracker) bool) (model.RotationTracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, created, err := r.trackerLocked(subject)
	if err != nil {
		return model.RotationTracker{}, err
	}
	t = t.Clone()
	if !fn(&t) {
		if created {
			r.persistLocked()
		}
		return model.RotationTracker{}, model.NewValidationError("rotation", "round", round,
			fmt.Sprintf("must be in [1, %d]", len(t.Slots)))
	}
	r.trackers[t.Subject] = t
	r.persistLocked()
	return t.Clone(), nil
}

// CompleteRotation marks round done today.
func (r *Repository) CompleteRotation(subject string, round int) (model.RotationTracker, error) {
	today := calendar.Today(r.opts.Clock)
	return r.mutateTracker(subject, round, func(t *model.RotationTracker) bool {
		return t.Complete(round, today)
	})
}

// ToggleRotation flips round, stamping today on completion.
func (r *Repository) ToggleRotation(subject string, round int) (model.RotationTracker, error) {
	today := calendar.Today(r.opts.Clock)
	return r.mutateTracker(subject, round, func(t *model.RotationTracker) bool {
		return t.Toggle(round, today)
	})
}

// AttributeRotationHours adds study hours to a round.
func (r *Repository) AttributeRotationHours(subject string, round int, hours float64) (model.RotationTracker, error) {
	if hours < 0 {
		return model.RotationTracker{}, model.NewValidationError("rotation", "studyHours", hours, "must not be negative")
	}
	return r.mutateTracker(subject, round, func(t *model.RotationTracker) bool {
		return t.AttributeHours(round, hours)
	})
}

// SetExamProfile changes the benchmark profile name.
func (r *Repository) SetExamProfile(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.NewValidationError("document", "examProfile", nil, "required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.examProfile = name
	r.persistLocked()
	return nil
}

// RebuildStreak replaces the cached streak with a full replay of the log.
func (r *Repository) RebuildStreak() (before, after model.StreakState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before = r.streak
	r.streak = stats.DeriveStreak(r.intervals)
	if before != r.streak {
		r.logger.Info("streak rebuilt", slog.Int("current", r.streak.CurrentLength),
			slog.Int("longest", r.streak.LongestLength), slog.Int("total", r.streak.TotalStudyDays))
		r.persistLocked()
	}
	return before, r.streak
}

// Reset clears every record and keeps the exam profile.
func (r *Repository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intervals = nil
	r.scores = nil
	r.trackers = map[string]model.RotationTracker{}
	r.streak = model.StreakState{}
	r.loadWarnings = nil
	r.persistLocked()
}

// Restore replaces the document after re-validating it through the same
// path used at load. The result is saved immediately.
func (r *Repository) Restore(doc Document) ([]IntegrityWarning, error) {
	data, err := Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	clean, warnings, err := Decode(data, r.opts.RotationSlots)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.install(clean)
	r.settleStreak()
	r.loadWarnings = warnings
	r.dirty = true
	r.stopTimerLocked()
	r.flushLocked()
	return warnings, r.persistErr
}

// Today is the current day according to the repository clock.
func (r *Repository) Today() string {
	return calendar.Today(r.opts.Clock)
}

// Intervals returns every interval ordered by date and start time.
func (r *Repository) Intervals() []model.Interval {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedIntervals(r.intervals)
}

func sortedIntervals(log []model.Interval) []model.Interval {
	out := append([]model.Interval(nil), log...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// IntervalsOn returns the intervals of day ordered by start time.
func (r *Repository) IntervalsOn(day string) []model.Interval {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Interval
	for _, iv := range r.intervals {
		if iv.Date == day {
			out = append(out, iv)
		}
	}
	return sortedIntervals(out)
}

// Interval looks up one interval by id.
func (r *Repository) Interval(id string) (model.Interval, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOfInterval(id)
	if i < 0 {
		return model.Interval{}, false
	}
	return r.intervals[i], true
}

// Scores returns every score ordered by date.
func (r *Repository) Scores() []model.Score {
	r.mu.Lock()
	defer r.mu.Unlock()
	return stats.SortScores(r.scores)
}

// ScoresFor returns the scores of one subject ordered by date.
func (r *Repository) ScoresFor(subject string) []model.Score {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Score
	for _, s := range r.scores {
		if s.Subject == subject {
			out = append(out, s)
		}
	}
	return stats.SortScores(out)
}

// Trackers returns a copy of every rotation tracker.
func (r *Repository) Trackers() map[string]model.RotationTracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackersCopyLocked()
}

func (r *Repository) trackersCopyLocked() map[string]model.RotationTracker {
	out := make(map[string]model.RotationTracker, len(r.trackers))
	for name, t := range r.trackers {
		out[name] = t.Clone()
	}
	return out
}

// Streak returns the cached streak state.
func (r *Repository) Streak() model.StreakState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streak
}

// ExamProfile returns the selected benchmark profile name.
func (r *Repository) ExamProfile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.examProfile
}

// Plan returns the configured subject order.
func (r *Repository) Plan() []string {
	return append([]string(nil), r.opts.Plan...)
}

// Subjects lists plan subjects first, then every other subject in the data.
func (r *Repository) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return stats.SubjectNames(r.opts.Plan, r.intervals, r.scores, r.trackers)
}

// Snapshot returns a deep copy of the current document.
func (r *Repository) Snapshot() Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Repository) snapshotLocked() Document {
	return Document{
		Intervals:        append([]model.Interval(nil), r.intervals...),
		ScoreRecords:     append([]model.Score(nil), r.scores...),
		RotationTrackers: r.trackersCopyLocked(),
		Streak:           r.streak,
		ExamProfile:      r.examProfile,
		Metadata:         r.meta,
	}
}

// Audit returns the warnings raised at load plus a fresh consistency check.
func (r *Repository) Audit() []IntegrityWarning {
	r.mu.Lock()
	doc := r.snapshotLocked()
	out := append([]IntegrityWarning(nil), r.loadWarnings...)
	r.mu.Unlock()
	out = append(out, Audit(doc, r.opts.Plan)...)
	for _, w := range out {
		r.logger.Debug("integrity warning", slog.String("kind", string(w.Kind)),
			slog.String("ref", w.Ref), slog.String("detail", w.Message))
	}
	return out
}

// PersistError returns the last save failure, or nil after a good save.
func (r *Repository) PersistError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistErr
}

func (r *Repository) persistLocked() {
	r.dirty = true
	if r.closed {
		return
	}
	if r.opts.SaveDelay <= 0 {
		r.flushLocked()
		return
	}
	if r.timer == nil {
		r.timer = time.AfterFunc(r.opts.SaveDelay, r.flushFromTimer)
	}
}

func (r *Repository) flushFromTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timer = nil
	if r.dirty && !r.closed {
		r.flushLocked()
	}
}

func (r *Repository) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Repository) flushLocked() {
	doc := r.snapshotLocked()
	doc.Metadata = Metadata{
		Version:           DocumentVersion,
		LastSyncTimestamp: r.opts.Clock.Now().UTC().Format(time.RFC3339),
	}
	data, err := Encode(doc)
	if err != nil {
		r.persistErr = &PersistenceError{Op: "encode", Err: err}
		r.logger.Warn("encode document failed", slog.Any("error", err))
		return
	}
	if err := r.backend.Save(context.Background(), r.opts.Key, data); err != nil {
		r.persistErr = &PersistenceError{Op: "save", Err: err}
		r.logger.Warn("save document failed; keeping changes in memory",
			slog.String("key", r.opts.Key), slog.Any("error", err))
		return
	}
	r.meta = doc.Metadata
	r.dirty = false
	r.persistErr = nil
}

// Flush writes pending changes now and returns the last save failure.
func (r *Repository) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	if r.dirty {
		r.flushLocked()
	}
	return r.persistErr
}

// Close flushes pending changes and closes the backend.
func (r *Repository) Close() error {
	flushErr := r.Flush()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return flushErr
	}
	r.closed = true
	r.mu.Unlock()
	return errors.Join(flushErr, r.backend.Close())
}
