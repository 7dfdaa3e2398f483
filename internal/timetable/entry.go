// Package timetable keeps the weekly lecture schedule free of double bookings.
// An entry is rejected when it overlaps another entry of the same class, or of the
// same teacher, on the same day.
package timetable

import (
	"sort"
	"time"

	"classroll/internal/timeslot"
)

// Entry is a persisted lecture slot. StartTime and EndTime are canonical "HH:MM".
type Entry struct {
	ID        string           `json:"id"`
	ClassID   string           `json:"classId"`
	SubjectID string           `json:"subjectId"`
	TeacherID string           `json:"teacherId"`
	Day       timeslot.Weekday `json:"day"`
	StartTime string           `json:"startTime"`
	EndTime   string           `json:"endTime"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Interval returns the half-open time range of e. Persisted entries always parse.
func (e Entry) Interval() timeslot.Interval {
	iv, _ := timeslot.NewInterval(e.StartTime, e.EndTime)
	return iv
}

// NewEntry contains information needed to schedule a lecture.
type NewEntry struct {
	ClassID   string `json:"classId" validate:"required,uuid"`
	SubjectID string `json:"subjectId" validate:"required,uuid"`
	TeacherID string `json:"teacherId" validate:"required,uuid"`
	Day       string `json:"day" validate:"required,weekday"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
}

// Filter narrows List; empty fields are unconstrained.
type Filter struct {
	ClassID   string
	TeacherID string
	Day       timeslot.Weekday
}

// Match reports whether e satisfies f.
func (f Filter) Match(e Entry) bool {
	if f.ClassID != "" && e.ClassID != f.ClassID {
		return false
	}
	if f.TeacherID != "" && e.TeacherID != f.TeacherID {
		return false
	}
	if f.Day != "" && e.Day != f.Day {
		return false
	}
	return true
}

// SortEntries orders entries by weekday (Monday first) then start time.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].Day.Index(), entries[j].Day.Index()
		if di != dj {
			return di < dj
		}
		return entries[i].StartTime < entries[j].StartTime
	})
}

// ClassScopeKey and TeacherScopeKey name the units a writer must serialise on.
func ClassScopeKey(classID string, day timeslot.Weekday) string {
	return "class:" + classID + ":" + string(day)
}

func TeacherScopeKey(teacherID string, day timeslot.Weekday) string {
	return "teacher:" + teacherID + ":" + string(day)
}
