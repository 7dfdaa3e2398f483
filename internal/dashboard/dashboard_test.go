package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classroll/internal/apperr"
	"classroll/internal/attendance"
	"classroll/internal/auth"
	"classroll/internal/school"
	"classroll/internal/timeslot"
	"classroll/internal/timetable"
)

type fakeCounter struct {
	counts   school.Counts
	subjects map[string]int
	err      error
}

func (f fakeCounter) Counts(context.Context) (school.Counts, error) {
	return f.counts, f.err
}

func (f fakeCounter) CountSubjectsForTeacher(_ context.Context, id string) (int, error) {
	return f.subjects[id], f.err
}

type fakeLister struct {
	entries []timetable.Entry
	got     *timetable.Filter
}

func (f fakeLister) List(_ context.Context, flt timetable.Filter) ([]timetable.Entry, error) {
	*f.got = flt
	var res []timetable.Entry
	for _, e := range f.entries {
		if flt.Match(e) {
			res = append(res, e)
		}
	}
	return res, nil
}

type fakeStats map[string]attendance.Stats

func (f fakeStats) Stats(_ context.Context, s attendance.Scope) (attendance.Stats, error) {
	return f[s.StudentID], nil
}

func newSummarizer(c Counter, l Lister, st StatsSource, now time.Time, loc *time.Location) *Summarizer {
	s := New(c, l, st, loc)
	s.now = func() time.Time { return now }
	return s
}

func TestAdminSummary(t *testing.T) {
	counts := school.Counts{Classes: 2, Teachers: 3, Students: 40, Subjects: 6}
	s := newSummarizer(fakeCounter{counts: counts}, nil, nil, time.Now(), nil)

	sum, err := s.Summarize(context.Background(), auth.Identity{UserID: "u", Role: auth.RoleAdmin})
	require.NoError(t, err)
	require.NotNil(t, sum.Admin)
	assert.Equal(t, counts, *sum.Admin)
	assert.Nil(t, sum.Teacher)
	assert.Nil(t, sum.Student)
}

func TestTeacherSummaryUsesToday(t *testing.T) {
	entries := []timetable.Entry{
		{ID: "1", TeacherID: "t1", Day: timeslot.Monday, StartTime: "09:00", EndTime: "10:00"},
		{ID: "2", TeacherID: "t1", Day: timeslot.Tuesday, StartTime: "09:00", EndTime: "10:00"},
		{ID: "3", TeacherID: "t2", Day: timeslot.Monday, StartTime: "09:00", EndTime: "10:00"},
	}
	var got timetable.Filter
	lister := fakeLister{entries: entries, got: &got}
	counter := fakeCounter{subjects: map[string]int{"t1": 4}}

	// Sunday 20:00 UTC is already Monday in IST.
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, time.January, 14, 20, 0, 0, 0, time.UTC)
	s := newSummarizer(counter, lister, nil, now, ist)

	sum, err := s.Summarize(context.Background(), auth.Identity{Role: auth.RoleTeacher, ProfileID: "t1"})
	require.NoError(t, err)
	require.NotNil(t, sum.Teacher)
	assert.Equal(t, timeslot.Monday, sum.Teacher.Day)
	assert.Equal(t, 4, sum.Teacher.Subjects)
	assert.Equal(t, 1, sum.Teacher.TodayLectures)
	assert.Equal(t, "1", sum.Teacher.Lectures[0].ID)
	assert.Equal(t, timetable.Filter{TeacherID: "t1", Day: timeslot.Monday}, got)

	s.now = func() time.Time { return now.Add(-12 * time.Hour) }
	sum, err = s.Summarize(context.Background(), auth.Identity{Role: auth.RoleTeacher, ProfileID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, timeslot.Sunday, sum.Teacher.Day)
	assert.NotNil(t, sum.Teacher.Lectures)
	assert.Equal(t, 0, sum.Teacher.TodayLectures)
}

func TestStudentSummary(t *testing.T) {
	stats := fakeStats{"s1": attendance.Summarize(10, 8)}
	s := newSummarizer(nil, nil, stats, time.Now(), nil)

	sum, err := s.Summarize(context.Background(), auth.Identity{Role: auth.RoleStudent, ProfileID: "s1"})
	require.NoError(t, err)
	require.NotNil(t, sum.Student)
	assert.Equal(t, 80.0, sum.Student.Percentage)

	sum, err = s.Summarize(context.Background(), auth.Identity{Role: auth.RoleStudent, ProfileID: "s2"})
	require.NoError(t, err)
	assert.Equal(t, attendance.Stats{}, *sum.Student)
}

func TestSummaryErrors(t *testing.T) {
	boom := errors.New("boom")
	var got timetable.Filter
	s := newSummarizer(fakeCounter{err: boom}, fakeLister{got: &got}, fakeStats{}, time.Now(), nil)
	ctx := context.Background()

	_, err := s.Summarize(ctx, auth.Identity{Role: auth.RoleAdmin})
	assert.ErrorIs(t, err, boom)
	_, err = s.Summarize(ctx, auth.Identity{Role: auth.RoleTeacher, ProfileID: "t1"})
	assert.ErrorIs(t, err, boom)
	_, err = s.Summarize(ctx, auth.Identity{Role: auth.RoleTeacher})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = s.Summarize(ctx, auth.Identity{Role: auth.RoleStudent})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = s.Summarize(ctx, auth.Identity{Role: "GUEST"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
