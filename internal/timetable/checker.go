package timetable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"classroll/internal/apperr"
	"classroll/internal/metrics"
	"classroll/internal/school"
	"classroll/internal/timeslot"
	"classroll/internal/validation"
)

// Scope names which double-booking rule an insert violated.
type Scope string

const (
	ClassScope   Scope = "class"
	TeacherScope Scope = "teacher"
)

// ErrInvalidRange is returned when the end time is not after the start time.
var ErrInvalidRange = apperr.New(apperr.ErrValidation, "timetable.CheckAndInsert", "endTime must be after startTime")

// ConflictError reports the existing entry a candidate overlaps.
// It matches apperr.ErrConflict with errors.Is.
type ConflictError struct {
	Scope    Scope
	Existing Entry
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: overlaps entry %s on %s %s-%s",
		e.Scope, e.Existing.ID, e.Existing.Day, e.Existing.StartTime, e.Existing.EndTime)
}

func (e *ConflictError) Unwrap() error {
	return apperr.ErrConflict
}

// Tx is the view of the store inside a scope-serialised transaction.
type Tx interface {
	EntriesForClass(ctx context.Context, classID string, day timeslot.Weekday) ([]Entry, error)
	EntriesForTeacher(ctx context.Context, teacherID string, day timeslot.Weekday) ([]Entry, error)
	Insert(ctx context.Context, e Entry) error
}

// Repository persists timetable entries.
type Repository interface {
	// WithScopes runs fn atomically with respect to every other WithScopes call
	// sharing one of keys. An error from fn rolls back its writes.
	WithScopes(ctx context.Context, keys []string, fn func(Tx) error) error
	// List returns the entries matching f ordered by weekday then start time.
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// RefChecker verifies referenced entities exist and that the subject matches
// the class and teacher of the slot.
type RefChecker interface {
	Ensure(ctx context.Context, refs school.Refs) error
	EnsureTaught(ctx context.Context, subjectID, classID, teacherID string) error
}

// Checker validates and inserts timetable entries.
type Checker struct {
	repo Repository
	refs RefChecker
}

// NewChecker creates a checker. refs may be nil to skip the existence check.
func NewChecker(repo Repository, refs RefChecker) *Checker {
	return &Checker{repo: repo, refs: refs}
}

// CheckAndInsert persists the candidate unless it overlaps an entry of the same class
// or the same teacher on the same day. The class scope is checked first and only the
// first violation is reported, as a *ConflictError.
func (c *Checker) CheckAndInsert(ctx context.Context, ne NewEntry) (Entry, error) {
	if err := validation.Struct("timetable.CheckAndInsert", ne); err != nil {
		return Entry{}, err
	}
	day, _ := timeslot.ParseWeekday(ne.Day)
	slot, err := timeslot.NewInterval(ne.StartTime, ne.EndTime)
	if err != nil {
		return Entry{}, ErrInvalidRange
	}
	if c.refs != nil {
		err := c.refs.Ensure(ctx, school.Refs{ClassID: ne.ClassID, SubjectID: ne.SubjectID, TeacherID: ne.TeacherID})
		if err != nil {
			return Entry{}, err
		}
		if err := c.refs.EnsureTaught(ctx, ne.SubjectID, ne.ClassID, ne.TeacherID); err != nil {
			return Entry{}, err
		}
	}

	e := Entry{
		ID:        uuid.NewString(),
		ClassID:   ne.ClassID,
		SubjectID: ne.SubjectID,
		TeacherID: ne.TeacherID,
		Day:       day,
		StartTime: slot.Start.String(),
		EndTime:   slot.End.String(),
		CreatedAt: time.Now().UTC(),
	}

	keys := []string{ClassScopeKey(e.ClassID, day), TeacherScopeKey(e.TeacherID, day)}
	err = c.repo.WithScopes(ctx, keys, func(tx Tx) error {
		existing, err := tx.EntriesForClass(ctx, e.ClassID, day)
		if err != nil {
			return err
		}
		if hit, ok := firstOverlap(existing, slot); ok {
			return &ConflictError{Scope: ClassScope, Existing: hit}
		}

		existing, err = tx.EntriesForTeacher(ctx, e.TeacherID, day)
		if err != nil {
			return err
		}
		if hit, ok := firstOverlap(existing, slot); ok {
			return &ConflictError{Scope: TeacherScope, Existing: hit}
		}
		return tx.Insert(ctx, e)
	})
	if err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			metrics.TimetableConflicts.WithLabelValues(string(ce.Scope)).Inc()
		}
		return Entry{}, err
	}
	return e, nil
}

// List returns the entries matching f ordered by weekday then start time.
func (c *Checker) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Day != "" && !f.Day.Valid() {
		return nil, apperr.Validation("timetable.List", "invalid day %q", f.Day)
	}
	return c.repo.List(ctx, f)
}

func firstOverlap(entries []Entry, slot timeslot.Interval) (Entry, bool) {
	for _, e := range entries {
		if e.Interval().Overlaps(slot) {
			return e, true
		}
	}
	return Entry{}, false
}
