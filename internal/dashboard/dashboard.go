// Package dashboard composes the read-only home views of each portal.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"classroll/internal/apperr"
	"classroll/internal/attendance"
	"classroll/internal/auth"
	"classroll/internal/school"
	"classroll/internal/timeslot"
	"classroll/internal/timetable"
)

// Counter is the part of school.Service the dashboards read.
type Counter interface {
	Counts(ctx context.Context) (school.Counts, error)
	CountSubjectsForTeacher(ctx context.Context, teacherID string) (int, error)
}

// Lister is satisfied by timetable.Checker.
type Lister interface {
	List(ctx context.Context, f timetable.Filter) ([]timetable.Entry, error)
}

// StatsSource is satisfied by attendance.Ledger.
type StatsSource interface {
	Stats(ctx context.Context, s attendance.Scope) (attendance.Stats, error)
}

// TeacherView is a teacher's subject count and today's lectures.
type TeacherView struct {
	Subjects      int               `json:"subjects"`
	Day           timeslot.Weekday  `json:"day"`
	TodayLectures int               `json:"todayLectures"`
	Lectures      []timetable.Entry `json:"lectures"`
}

// Summary holds exactly one view, chosen by the caller's role.
type Summary struct {
	Role    auth.Role         `json:"role"`
	Admin   *school.Counts    `json:"admin,omitempty"`
	Teacher *TeacherView      `json:"teacher,omitempty"`
	Student *attendance.Stats `json:"student,omitempty"`
}

type Summarizer struct {
	counts  Counter
	entries Lister
	stats   StatsSource
	loc     *time.Location
	now     func() time.Time
}

// New creates a summarizer. Today's weekday is taken in loc.
func New(counts Counter, entries Lister, stats StatsSource, loc *time.Location) *Summarizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Summarizer{counts: counts, entries: entries, stats: stats, loc: loc, now: time.Now}
}

// Summarize returns the view for id's role.
func (s *Summarizer) Summarize(ctx context.Context, id auth.Identity) (Summary, error) {
	switch id.Role {
	case auth.RoleAdmin:
		c, err := s.counts.Counts(ctx)
		if err != nil {
			return Summary{}, err
		}
		return Summary{Role: id.Role, Admin: &c}, nil

	case auth.RoleTeacher:
		if id.ProfileID == "" {
			return Summary{}, apperr.New(apperr.ErrForbidden, "dashboard.Summarize", "no teacher profile")
		}
		v, err := s.teacher(ctx, id.ProfileID)
		if err != nil {
			return Summary{}, err
		}
		return Summary{Role: id.Role, Teacher: &v}, nil

	case auth.RoleStudent:
		if id.ProfileID == "" {
			return Summary{}, apperr.New(apperr.ErrForbidden, "dashboard.Summarize", "no student profile")
		}
		st, err := s.stats.Stats(ctx, attendance.Scope{StudentID: id.ProfileID})
		if err != nil {
			return Summary{}, err
		}
		return Summary{Role: id.Role, Student: &st}, nil
	}
	return Summary{}, apperr.New(apperr.ErrForbidden, "dashboard.Summarize", "unknown role")
}

func (s *Summarizer) teacher(ctx context.Context, teacherID string) (TeacherView, error) {
	v := TeacherView{Day: timeslot.WeekdayOf(s.now().In(s.loc))}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.counts.CountSubjectsForTeacher(gctx, teacherID)
		v.Subjects = n
		return err
	})
	g.Go(func() error {
		entries, err := s.entries.List(gctx, timetable.Filter{TeacherID: teacherID, Day: v.Day})
		v.Lectures = entries
		return err
	})
	if err := g.Wait(); err != nil {
		return TeacherView{}, err
	}
	if v.Lectures == nil {
		v.Lectures = []timetable.Entry{}
	}
	v.TodayLectures = len(v.Lectures)
	return v, nil
}
