package memory

import (
	"context"

	"classroll/internal/apperr"
	"classroll/internal/timeslot"
	"classroll/internal/timetable"
)

type TimetableRepository struct {
	s *Store
}

var _ timetable.Repository = (*TimetableRepository)(nil)

// WithScopes holds the store's write lock for the whole of fn, so every scope is
// serialised. Entries inserted by a failing fn are discarded.
func (r *TimetableRepository) WithScopes(ctx context.Context, _ []string, fn func(timetable.Tx) error) error {
	if err := ctxErr(ctx, "timetable.WithScopes"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	mark := len(r.s.entries)
	if err := fn(&memTx{s: r.s}); err != nil {
		r.s.entries = r.s.entries[:mark]
		return err
	}
	return nil
}

func (r *TimetableRepository) List(ctx context.Context, f timetable.Filter) ([]timetable.Entry, error) {
	if err := ctxErr(ctx, "timetable.List"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var res []timetable.Entry
	for _, e := range r.s.entries {
		if f.Match(e) {
			res = append(res, e)
		}
	}
	timetable.SortEntries(res)
	return res, nil
}

type memTx struct {
	s *Store
}

func (t *memTx) EntriesForClass(_ context.Context, classID string, day timeslot.Weekday) ([]timetable.Entry, error) {
	return t.filter(timetable.Filter{ClassID: classID, Day: day}), nil
}

func (t *memTx) EntriesForTeacher(_ context.Context, teacherID string, day timeslot.Weekday) ([]timetable.Entry, error) {
	return t.filter(timetable.Filter{TeacherID: teacherID, Day: day}), nil
}

func (t *memTx) filter(f timetable.Filter) []timetable.Entry {
	var res []timetable.Entry
	for _, e := range t.s.entries {
		if f.Match(e) {
			res = append(res, e)
		}
	}
	return res
}

// Insert checks references and both overlap rules, like the table's foreign keys and
// exclusion constraints.
func (t *memTx) Insert(_ context.Context, e timetable.Entry) error {
	const op = "timetable.Insert"
	if t.s.classIndex(e.ClassID) < 0 || t.s.subjectIndex(e.SubjectID) < 0 || t.s.teacherIndex(e.TeacherID) < 0 {
		return referenced(op)
	}
	slot := e.Interval()
	for _, ex := range t.s.entries {
		if ex.Day != e.Day || !ex.Interval().Overlaps(slot) {
			continue
		}
		if ex.ClassID == e.ClassID || ex.TeacherID == e.TeacherID {
			return apperr.New(apperr.ErrStore, op, "concurrent write rejected, retry")
		}
	}
	t.s.entries = append(t.s.entries, e)
	return nil
}
