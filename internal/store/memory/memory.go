// Package memory implements the repositories on process memory. It enforces the same
// unique keys, references and overlap rules as the Postgres schema, which makes it the
// backend for tests and for STORE_BACKEND=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"classroll/internal/apperr"
	"classroll/internal/attendance"
	"classroll/internal/school"
	"classroll/internal/timetable"
)

// Store holds every table behind one lock.
type Store struct {
	mu sync.RWMutex

	users      map[string]school.User
	emails     map[string]string
	classes    []school.Class
	teachers   []school.Teacher
	students   []school.Student
	subjects   []school.Subject
	entries    []timetable.Entry
	records    []attendance.Record
	recordKeys map[recordKey]int
}

type recordKey struct {
	studentID, subjectID string
	date                 time.Time
}

func New() *Store {
	return &Store{
		users:      make(map[string]school.User),
		emails:     make(map[string]string),
		recordKeys: make(map[recordKey]int),
	}
}

// School returns the reference data repository.
func (s *Store) School() *SchoolRepository { return &SchoolRepository{s: s} }

// Timetable returns the timetable repository.
func (s *Store) Timetable() *TimetableRepository { return &TimetableRepository{s: s} }

// Attendance returns the attendance repository.
func (s *Store) Attendance() *AttendanceRepository { return &AttendanceRepository{s: s} }

func (s *Store) classIndex(id string) int {
	for i, c := range s.classes {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) teacherIndex(id string) int {
	for i, t := range s.teachers {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) studentIndex(id string) int {
	for i, st := range s.students {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) subjectIndex(id string) int {
	for i, sb := range s.subjects {
		if sb.ID == id {
			return i
		}
	}
	return -1
}

func referenced(op string) error {
	return apperr.New(apperr.ErrNotFound, op, "referenced entity not found")
}

// ctxErr lets cancelled requests fail the same way a dropped connection would.
func ctxErr(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.ErrStore, op, "store unavailable", err)
	}
	return nil
}

func sortBy[T any](items []T, less func(a, b T) bool) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
