package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"classroll/internal/store"
)

// PostgresRepository persists attendance data in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, student_id, subject_id, teacher_id, date, status, created_at, updated_at`

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var r Record
	var status string
	if err := scan(&r.ID, &r.StudentID, &r.SubjectID, &r.TeacherID, &r.Date, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Record{}, err
	}
	r.Status = Status(status)
	return r, nil
}

// Upsert relies on the (student_id, subject_id, date) unique key; teacher_id and
// created_at of an existing row are left untouched.
func (r *PostgresRepository) Upsert(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id, subject_id, date)
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		RETURNING `+recordColumns,
		rec.ID, rec.StudentID, rec.SubjectID, rec.TeacherID, rec.Date, string(rec.Status), rec.CreatedAt, rec.UpdatedAt)
	out, err := scanRecord(row.Scan)
	if err != nil {
		return Record{}, store.Classify("attendance.Upsert", "attendance record", err)
	}
	return out, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("student_id", f.StudentID)
	add("subject_id", f.SubjectID)
	add("teacher_id", f.TeacherID)

	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, updated_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify("attendance.List", "attendance record", errors.Wrap(err, "querying attendance"))
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, store.Classify("attendance.List", "attendance record", err)
		}
		res = append(res, rec)
	}
	return res, store.Classify("attendance.List", "attendance record", rows.Err())
}

func (r *PostgresRepository) Count(ctx context.Context, s Scope) (int, int, error) {
	query := `
		SELECT count(*), count(*) FILTER (WHERE a.status = 'PRESENT')
		FROM attendance_records a`
	var args []any
	switch {
	case s.StudentID != "":
		query += ` WHERE a.student_id = $1`
		args = append(args, s.StudentID)
	case s.ClassID != "":
		query += ` JOIN students s ON s.id = a.student_id WHERE s.class_id = $1`
		args = append(args, s.ClassID)
	}

	var total, present int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total, &present); err != nil {
		return 0, 0, store.Classify("attendance.Count", "attendance record", err)
	}
	return total, present, nil
}

func (r *PostgresRepository) Tallies(ctx context.Context) ([]Tally, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, u.name, s.roll_no, c.class_name || ' ' || c.division,
			count(a.id), count(a.id) FILTER (WHERE a.status = 'PRESENT')
		FROM students s
		JOIN users u ON u.id = s.user_id
		JOIN classes c ON c.id = s.class_id
		LEFT JOIN attendance_records a ON a.student_id = s.id
		GROUP BY s.id, u.name, s.roll_no, c.class_name, c.division, s.created_at
		ORDER BY s.created_at ASC, s.id ASC
	`)
	if err != nil {
		return nil, store.Classify("attendance.Tallies", "student", errors.Wrap(err, "querying tallies"))
	}
	defer rows.Close()

	var res []Tally
	for rows.Next() {
		var t Tally
		if err := rows.Scan(&t.Student.ID, &t.Student.Name, &t.Student.RollNo, &t.Student.Class, &t.Total, &t.Present); err != nil {
			return nil, store.Classify("attendance.Tallies", "student", err)
		}
		res = append(res, t)
	}
	return res, store.Classify("attendance.Tallies", "student", rows.Err())
}
