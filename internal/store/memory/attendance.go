package memory

import (
	"context"
	"sort"

	"classroll/internal/attendance"
)

type AttendanceRepository struct {
	s *Store
}

var _ attendance.Repository = (*AttendanceRepository)(nil)

func (r *AttendanceRepository) Upsert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	const op = "attendance.Upsert"
	if err := ctxErr(ctx, op); err != nil {
		return attendance.Record{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := recordKey{studentID: rec.StudentID, subjectID: rec.SubjectID, date: rec.Date}
	if i, ok := r.s.recordKeys[key]; ok {
		r.s.records[i].Status = rec.Status
		r.s.records[i].UpdatedAt = rec.UpdatedAt
		return r.s.records[i], nil
	}
	if r.s.studentIndex(rec.StudentID) < 0 || r.s.subjectIndex(rec.SubjectID) < 0 || r.s.teacherIndex(rec.TeacherID) < 0 {
		return attendance.Record{}, referenced(op)
	}
	r.s.recordKeys[key] = len(r.s.records)
	r.s.records = append(r.s.records, rec)
	return rec, nil
}

func (r *AttendanceRepository) List(ctx context.Context, f attendance.Filter) ([]attendance.Record, error) {
	if err := ctxErr(ctx, "attendance.List"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var res []attendance.Record
	for _, rec := range r.s.records {
		if f.Match(rec) {
			res = append(res, rec)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if !res[i].Date.Equal(res[j].Date) {
			return res[i].Date.After(res[j].Date)
		}
		return res[i].UpdatedAt.After(res[j].UpdatedAt)
	})
	return res, nil
}

func (r *AttendanceRepository) Count(ctx context.Context, sc attendance.Scope) (int, int, error) {
	if err := ctxErr(ctx, "attendance.Count"); err != nil {
		return 0, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	inClass := map[string]bool{}
	if sc.ClassID != "" {
		for _, st := range r.s.students {
			if st.ClassID == sc.ClassID {
				inClass[st.ID] = true
			}
		}
	}
	total, present := 0, 0
	for _, rec := range r.s.records {
		switch {
		case sc.StudentID != "" && rec.StudentID != sc.StudentID:
			continue
		case sc.ClassID != "" && !inClass[rec.StudentID]:
			continue
		}
		total++
		if rec.Status == attendance.Present {
			present++
		}
	}
	return total, present, nil
}

// Tallies enumerates students in creation order.
func (r *AttendanceRepository) Tallies(ctx context.Context) ([]attendance.Tally, error) {
	if err := ctxErr(ctx, "attendance.Tallies"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	idx := make(map[string]int, len(r.s.students))
	res := make([]attendance.Tally, len(r.s.students))
	for i, st := range r.s.students {
		idx[st.ID] = i
		res[i].Student = attendance.StudentRef{ID: st.ID, Name: st.Name, RollNo: st.RollNo, Class: st.ClassLabel}
	}
	for _, rec := range r.s.records {
		i, ok := idx[rec.StudentID]
		if !ok {
			continue
		}
		res[i].Total++
		if rec.Status == attendance.Present {
			res[i].Present++
		}
	}
	return res, nil
}
