// Package attendance records per-lecture attendance and reduces it into statistics.
// A student has at most one record per subject and calendar day; marking again
// overwrites the status.
package attendance

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"classroll/internal/apperr"
	"classroll/internal/metrics"
	"classroll/internal/queue"
	"classroll/internal/school"
	"classroll/internal/timeslot"
	"classroll/internal/validation"
)

// MarkedEventType is the queue message type published after every mark.
const MarkedEventType = "attendance.marked"

// MarkedEvent is the body of a MarkedEventType message.
type MarkedEvent struct {
	StudentID string    `json:"studentId"`
	SubjectID string    `json:"subjectId"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
}

// Repository persists attendance records. Count and Tallies aggregate in the store.
type Repository interface {
	// Upsert inserts r, or overwrites only the status of the record sharing its
	// student, subject and date. It returns the stored record.
	Upsert(ctx context.Context, r Record) (Record, error)
	// List returns matching records ordered by date descending.
	List(ctx context.Context, f Filter) ([]Record, error)
	Count(ctx context.Context, s Scope) (total, present int, err error)
	// Tallies returns one entry per student, including students with no records.
	Tallies(ctx context.Context) ([]Tally, error)
}

// RefChecker verifies referenced entities exist.
type RefChecker interface {
	Ensure(ctx context.Context, refs school.Refs) error
}

// Publisher is satisfied by queue.Queue.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Ledger coordinates attendance marks and the statistics built on them.
type Ledger struct {
	repo Repository
	refs RefChecker
	pub  Publisher
	loc  *time.Location
}

// NewLedger creates a ledger. refs and pub may be nil. Dates are cut to calendar days in loc.
func NewLedger(repo Repository, refs RefChecker, pub Publisher, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{repo: repo, refs: refs, pub: pub, loc: loc}
}

// Location is the school timezone used for calendar days.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// Mark records in.Status for the student, subject and calendar day of in.Date.
// Re-marking keeps the teacher of the first mark.
func (l *Ledger) Mark(ctx context.Context, in MarkInput) (Record, error) {
	if err := validation.Struct("attendance.Mark", in); err != nil {
		return Record{}, err
	}
	if l.refs != nil {
		err := l.refs.Ensure(ctx, school.Refs{StudentID: in.StudentID, SubjectID: in.SubjectID, TeacherID: in.TeacherID})
		if err != nil {
			return Record{}, err
		}
	}

	now := time.Now().UTC()
	rec, err := l.repo.Upsert(ctx, Record{
		ID:        uuid.NewString(),
		StudentID: in.StudentID,
		SubjectID: in.SubjectID,
		TeacherID: in.TeacherID,
		Date:      timeslot.CalendarDay(in.Date, l.loc),
		Status:    in.Status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Record{}, err
	}
	metrics.AttendanceMarks.WithLabelValues(string(rec.Status)).Inc()
	l.publish(ctx, rec)
	return rec, nil
}

func (l *Ledger) publish(ctx context.Context, rec Record) {
	if l.pub == nil {
		return
	}
	body, err := json.Marshal(MarkedEvent{StudentID: rec.StudentID, SubjectID: rec.SubjectID, Date: rec.Date, Status: rec.Status})
	if err != nil {
		log.Printf("encode %s event failed: %v", MarkedEventType, err)
		return
	}
	if err := l.pub.Publish(ctx, queue.Message{Type: MarkedEventType, Body: body}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

// List returns records matching f, most recent day first.
func (l *Ledger) List(ctx context.Context, f Filter) ([]Record, error) {
	return l.repo.List(ctx, f)
}

// Stats aggregates the records in scope without loading them.
func (l *Ledger) Stats(ctx context.Context, s Scope) (Stats, error) {
	if s.StudentID != "" && s.ClassID != "" {
		return Stats{}, apperr.Validation("attendance.Stats", "studentId and classId are mutually exclusive")
	}
	total, present, err := l.repo.Count(ctx, s)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(total, present), nil
}

// Defaulters lists students whose attendance is below threshold, worst first.
func (l *Ledger) Defaulters(ctx context.Context, threshold float64) ([]Defaulter, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 100 {
		return nil, apperr.Validation("attendance.Defaulters", "threshold must be between 0 and 100")
	}
	tallies, err := l.repo.Tallies(ctx)
	if err != nil {
		return nil, err
	}
	return SelectDefaulters(tallies, threshold), nil
}
