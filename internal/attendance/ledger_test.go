package attendance_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classroll/internal/apperr"
	"classroll/internal/attendance"
	"classroll/internal/queue"
	"classroll/internal/school"
	"classroll/internal/store/memory"
)

type fixture struct {
	store    *memory.Store
	ledger   *attendance.Ledger
	events   *queue.InMemory
	class    school.Class
	teacher  school.Teacher
	other    school.Teacher
	subject  school.Subject
	students []school.Student
}

func setup(t *testing.T, students int) fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	svc := school.NewService(st.School())

	f := fixture{store: st}
	var err error
	f.class, err = svc.CreateClass(ctx, school.NewClass{ClassName: "Class 9", Division: "C", AcademicYear: "2024-25"})
	require.NoError(t, err)
	f.teacher, err = svc.CreateTeacher(ctx, school.NewTeacher{Name: "Ada", Email: "ada@school.test", Password: "secret1", Department: "Maths"})
	require.NoError(t, err)
	f.other, err = svc.CreateTeacher(ctx, school.NewTeacher{Name: "Bob", Email: "bob@school.test", Password: "secret1", Department: "Maths"})
	require.NoError(t, err)
	f.subject, err = svc.CreateSubject(ctx, school.NewSubject{SubjectCode: "M9", SubjectName: "Maths", ClassID: f.class.ID, TeacherID: f.teacher.ID})
	require.NoError(t, err)
	for i := 0; i < students; i++ {
		s, err := svc.CreateStudent(ctx, school.NewStudent{
			Name:     string(rune('A' + i)),
			Email:    string(rune('a'+i)) + "@pupil.test",
			Password: "secret1",
			RollNo:   string(rune('1' + i)),
			ClassID:  f.class.ID,
		})
		require.NoError(t, err)
		f.students = append(f.students, s)
	}

	f.events = queue.NewInMemory(1024)
	f.ledger = attendance.NewLedger(st.Attendance(), svc, f.events, time.UTC)
	return f
}

func day(n int) time.Time {
	return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC)
}

func (f fixture) mark(t *testing.T, student school.Student, teacher school.Teacher, date time.Time, status attendance.Status) attendance.Record {
	t.Helper()
	rec, err := f.ledger.Mark(context.Background(), attendance.MarkInput{
		StudentID: student.ID,
		SubjectID: f.subject.ID,
		TeacherID: teacher.ID,
		Date:      date,
		Status:    status,
	})
	require.NoError(t, err)
	return rec
}

func TestRemarkOverwrites(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 1)
	s := f.students[0]

	first := f.mark(t, s, f.teacher, day(15).Add(9*time.Hour), attendance.Present)
	second := f.mark(t, s, f.other, day(15).Add(14*time.Hour+30*time.Minute), attendance.Absent)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, attendance.Absent, second.Status)
	assert.Equal(t, f.teacher.ID, second.TeacherID, "re-mark keeps the first teacher")
	assert.Equal(t, day(15), second.Date)

	recs, err := f.ledger.List(ctx, attendance.Filter{StudentID: s.ID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, attendance.Absent, recs[0].Status)
}

func TestMarkNormalisesToSchoolDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	est := time.FixedZone("EST", -5*3600)

	tests := []struct {
		name  string
		loc   *time.Location
		input string
		want  time.Time
	}{
		{"utc date", time.UTC, "2024-01-15", day(15)},
		{"ahead of utc date", ist, "2024-01-15", day(15)},
		{"behind utc date", est, "2024-01-15", day(15)},
		{"ahead of utc rolls forward", ist, "2024-01-14T20:00:00Z", day(15)},
		{"behind utc rolls back", est, "2024-01-15T03:00:00Z", day(14)},
		{"behind utc late evening", est, "2024-01-15T23:30:00-05:00", day(15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, 1)
			f.ledger = attendance.NewLedger(f.store.Attendance(), nil, nil, tt.loc)
			assert.Equal(t, tt.loc, f.ledger.Location())

			date, err := attendance.ParseDate(tt.input, tt.loc)
			require.NoError(t, err)
			rec := f.mark(t, f.students[0], f.teacher, date, attendance.Present)
			assert.Equal(t, tt.want, rec.Date)

			recs, err := f.ledger.List(context.Background(), attendance.Filter{StudentID: f.students[0].ID})
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.want, recs[0].Date)
		})
	}
}

func TestMarkValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 1)
	s := f.students[0]

	tests := []struct {
		name string
		in   attendance.MarkInput
		is   error
	}{
		{"bad status", attendance.MarkInput{StudentID: s.ID, SubjectID: f.subject.ID, TeacherID: f.teacher.ID, Date: day(1), Status: "LATE"}, apperr.ErrValidation},
		{"no date", attendance.MarkInput{StudentID: s.ID, SubjectID: f.subject.ID, TeacherID: f.teacher.ID, Status: attendance.Present}, apperr.ErrValidation},
		{"no teacher", attendance.MarkInput{StudentID: s.ID, SubjectID: f.subject.ID, Date: day(1), Status: attendance.Present}, apperr.ErrValidation},
		{"malformed student", attendance.MarkInput{StudentID: "x", SubjectID: f.subject.ID, TeacherID: f.teacher.ID, Date: day(1), Status: attendance.Present}, apperr.ErrValidation},
		{"unknown student", attendance.MarkInput{StudentID: "2b0f3c1e-9d7a-4b8e-8f1a-3c2d1e0f9a8b", SubjectID: f.subject.ID, TeacherID: f.teacher.ID, Date: day(1), Status: attendance.Present}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Mark(ctx, tt.in)
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestMarkPublishesEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f := setup(t, 1)
	f.mark(t, f.students[0], f.teacher, day(3), attendance.Absent)

	msgs, err := f.events.Consume(ctx)
	require.NoError(t, err)
	msg := <-msgs
	assert.Equal(t, attendance.MarkedEventType, msg.Type)

	var evt attendance.MarkedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &evt))
	assert.Equal(t, f.students[0].ID, evt.StudentID)
	assert.Equal(t, attendance.Absent, evt.Status)
}

func TestListOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 2)

	f.mark(t, f.students[0], f.teacher, day(2), attendance.Present)
	f.mark(t, f.students[0], f.teacher, day(5), attendance.Absent)
	f.mark(t, f.students[1], f.teacher, day(3), attendance.Present)

	all, err := f.ledger.List(ctx, attendance.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, day(5), all[0].Date)
	assert.Equal(t, day(3), all[1].Date)
	assert.Equal(t, day(2), all[2].Date)

	mine, err := f.ledger.List(ctx, attendance.Filter{StudentID: f.students[1].ID, TeacherID: f.teacher.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := f.ledger.List(ctx, attendance.Filter{TeacherID: f.other.ID})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 2)
	s := f.students[0]
	for i := 1; i <= 10; i++ {
		status := attendance.Present
		if i > 8 {
			status = attendance.Absent
		}
		f.mark(t, s, f.teacher, day(i), status)
	}

	got, err := f.ledger.Stats(ctx, attendance.Scope{StudentID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, attendance.Stats{Total: 10, Present: 8, Absent: 2, Percentage: 80}, got)

	empty, err := f.ledger.Stats(ctx, attendance.Scope{StudentID: f.students[1].ID})
	require.NoError(t, err)
	assert.Equal(t, attendance.Stats{}, empty)

	f.mark(t, f.students[1], f.teacher, day(1), attendance.Absent)
	class, err := f.ledger.Stats(ctx, attendance.Scope{ClassID: f.class.ID})
	require.NoError(t, err)
	assert.Equal(t, attendance.Stats{Total: 11, Present: 8, Absent: 3, Percentage: 72.73}, class)

	_, err = f.ledger.Stats(ctx, attendance.Scope{StudentID: s.ID, ClassID: f.class.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDefaulters(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 4)

	plan := []struct{ present, absent int }{
		{2, 3}, // 40
		{9, 1}, // 90
		{3, 1}, // 75, excluded at the boundary
		{0, 0}, // no records, 0
	}
	for i, p := range plan {
		d := 1
		for j := 0; j < p.present; j++ {
			f.mark(t, f.students[i], f.teacher, day(d), attendance.Present)
			d++
		}
		for j := 0; j < p.absent; j++ {
			f.mark(t, f.students[i], f.teacher, day(d), attendance.Absent)
			d++
		}
	}

	got, err := f.ledger.Defaulters(ctx, attendance.DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, f.students[3].ID, got[0].Student.ID)
	assert.Equal(t, 0.0, got[0].Attendance.Percentage)
	assert.Equal(t, f.students[0].ID, got[1].Student.ID)
	assert.Equal(t, 40.0, got[1].Attendance.Percentage)
	assert.Equal(t, "Class 9 C", got[1].Student.Class)

	_, err = f.ledger.Defaulters(ctx, -1)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParseDate(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)

	d, err := attendance.ParseDate("2024-01-15", est)
	require.NoError(t, err)
	assert.True(t, d.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, est)), d)

	d, err = attendance.ParseDate("2024-01-14T20:00:00Z", est)
	require.NoError(t, err)
	assert.True(t, d.Equal(time.Date(2024, 1, 14, 20, 0, 0, 0, time.UTC)), d)

	d, err = attendance.ParseDate("2024-01-15", nil)
	require.NoError(t, err)
	assert.Equal(t, day(15), d)

	_, err = attendance.ParseDate("15/01/2024", est)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
