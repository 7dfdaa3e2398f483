package attendance

import (
	"time"

	"classroll/internal/apperr"
)

// Status is the mark recorded for a student in one lecture.
type Status string

const (
	Present Status = "PRESENT"
	Absent  Status = "ABSENT"
)

func (s Status) Valid() bool {
	return s == Present || s == Absent
}

// Record is one student's status for one subject on one calendar day.
// Date is midnight UTC of that day.
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	SubjectID string    `json:"subjectId"`
	TeacherID string    `json:"teacherId"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarkInput is a teacher's mark. TeacherID comes from the caller's identity, not the body.
type MarkInput struct {
	StudentID string    `json:"studentId" validate:"required,uuid"`
	SubjectID string    `json:"subjectId" validate:"required,uuid"`
	TeacherID string    `json:"teacherId" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Status    Status    `json:"status" validate:"required,oneof=PRESENT ABSENT"`
}

// Filter narrows List; empty fields are unconstrained.
type Filter struct {
	StudentID string
	SubjectID string
	TeacherID string
}

// Match reports whether r satisfies f.
func (f Filter) Match(r Record) bool {
	return (f.StudentID == "" || r.StudentID == f.StudentID) &&
		(f.SubjectID == "" || r.SubjectID == f.SubjectID) &&
		(f.TeacherID == "" || r.TeacherID == f.TeacherID)
}

// Scope selects the records Stats counts: one student, one class, or everything.
type Scope struct {
	StudentID string
	ClassID   string
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

// ParseDate accepts a plain calendar date, read as midnight in loc, or an RFC 3339
// timestamp. The result is not truncated: Ledger.Mark cuts it to the school's calendar day.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("attendance.ParseDate", "invalid date %q", s)
}
