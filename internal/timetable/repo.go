package timetable

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"classroll/internal/store"
	"classroll/internal/timeslot"
)

// PostgresRepository persists timetable entries in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// scopeTxOptions must give every statement a fresh snapshot: reads inside fn run after
// the advisory locks are granted and have to see rows committed by the previous holder.
var scopeTxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// WithScopes runs fn in a transaction holding an advisory lock per key.
// The exclusion constraints on timetable_entries reject anything that slips past.
func (r *PostgresRepository) WithScopes(ctx context.Context, keys []string, fn func(Tx) error) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	err := store.WithTx(ctx, r.db, scopeTxOptions, func(tx *sql.Tx) error {
		if err := store.LockScopes(ctx, tx, sorted); err != nil {
			return err
		}
		return fn(&pgTx{tx: tx})
	})
	return store.Classify("timetable.WithScopes", "timetable entry", err)
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.ClassID != "" {
		args = append(args, f.ClassID)
		where = append(where, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if f.TeacherID != "" {
		args = append(args, f.TeacherID)
		where = append(where, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if f.Day != "" {
		args = append(args, string(f.Day))
		where = append(where, fmt.Sprintf("day = $%d", len(args)))
	}

	query := selectEntries
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY day_index ASC, start_min ASC"

	entries, err := queryEntries(ctx, r.db, query, args...)
	if err != nil {
		return nil, store.Classify("timetable.List", "timetable entry", err)
	}
	return entries, nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) EntriesForClass(ctx context.Context, classID string, day timeslot.Weekday) ([]Entry, error) {
	return queryEntries(ctx, t.tx, selectEntries+` WHERE class_id = $1 AND day = $2 ORDER BY start_min`, classID, string(day))
}

func (t *pgTx) EntriesForTeacher(ctx context.Context, teacherID string, day timeslot.Weekday) ([]Entry, error) {
	return queryEntries(ctx, t.tx, selectEntries+` WHERE teacher_id = $1 AND day = $2 ORDER BY start_min`, teacherID, string(day))
}

func (t *pgTx) Insert(ctx context.Context, e Entry) error {
	iv := e.Interval()
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO timetable_entries (id, class_id, subject_id, teacher_id, day, day_index, start_min, end_min, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.ClassID, e.SubjectID, e.TeacherID, string(e.Day), e.Day.Index(), int(iv.Start), int(iv.End), e.CreatedAt)
	return err
}

const selectEntries = `
	SELECT id, class_id, subject_id, teacher_id, day, start_min, end_min, created_at
	FROM timetable_entries`

func queryEntries(ctx context.Context, q store.Querier, query string, args ...any) ([]Entry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying timetable entries")
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var (
			e          Entry
			day        string
			start, end int
		)
		if err := rows.Scan(&e.ID, &e.ClassID, &e.SubjectID, &e.TeacherID, &day, &start, &end, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning timetable entry")
		}
		e.Day = timeslot.Weekday(day)
		e.StartTime = timeslot.Clock(start).String()
		e.EndTime = timeslot.Clock(end).String()
		res = append(res, e)
	}
	return res, rows.Err()
}
