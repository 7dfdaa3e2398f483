package store

import (
	"context"

	"github.com/pkg/errors"
)

// schema is applied idempotently at startup. The exclusion constraints back up the
// timetable overlap check; the unique keys back up the entity and ledger invariants.
const schema = `
CREATE EXTENSION IF NOT EXISTS btree_gist;

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash BYTEA NOT NULL,
	role          TEXT NOT NULL CHECK (role IN ('ADMIN', 'TEACHER', 'STUDENT')),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS classes (
	id            UUID PRIMARY KEY,
	class_name    TEXT NOT NULL,
	division      TEXT NOT NULL,
	academic_year TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (class_name, division, academic_year)
);

CREATE TABLE IF NOT EXISTS teachers (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL UNIQUE REFERENCES users(id),
	department TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS students (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL UNIQUE REFERENCES users(id),
	roll_no    TEXT NOT NULL,
	class_id   UUID NOT NULL REFERENCES classes(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (roll_no, class_id)
);

CREATE TABLE IF NOT EXISTS subjects (
	id           UUID PRIMARY KEY,
	subject_code TEXT NOT NULL,
	subject_name TEXT NOT NULL,
	class_id     UUID NOT NULL REFERENCES classes(id),
	teacher_id   UUID NOT NULL REFERENCES teachers(id),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (subject_code, class_id)
);

CREATE TABLE IF NOT EXISTS timetable_entries (
	id         UUID PRIMARY KEY,
	class_id   UUID NOT NULL REFERENCES classes(id),
	subject_id UUID NOT NULL REFERENCES subjects(id),
	teacher_id UUID NOT NULL REFERENCES teachers(id),
	day        TEXT NOT NULL,
	day_index  SMALLINT NOT NULL,
	start_min  INT NOT NULL,
	end_min    INT NOT NULL CHECK (end_min > start_min),
	slot       INT4RANGE GENERATED ALWAYS AS (int4range(start_min, end_min, '[)')) STORED,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT timetable_class_no_overlap EXCLUDE USING gist (class_id WITH =, day WITH =, slot WITH &&),
	CONSTRAINT timetable_teacher_no_overlap EXCLUDE USING gist (teacher_id WITH =, day WITH =, slot WITH &&)
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id         UUID PRIMARY KEY,
	student_id UUID NOT NULL REFERENCES students(id),
	subject_id UUID NOT NULL REFERENCES subjects(id),
	teacher_id UUID NOT NULL REFERENCES teachers(id),
	date       DATE NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('PRESENT', 'ABSENT')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (student_id, subject_id, date)
);

CREATE INDEX IF NOT EXISTS idx_attendance_teacher ON attendance_records(teacher_id);
CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance_records(date DESC);
`

// Migrate applies the schema.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Client.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "applying schema")
	}
	return nil
}
