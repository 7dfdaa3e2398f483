package school

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"classroll/internal/auth"
	"classroll/internal/store"
)

// PostgresRepository persists reference data in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateClass(ctx context.Context, c Class) (Class, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classes (id, class_name, division, academic_year, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.ClassName, c.Division, c.AcademicYear, c.CreatedAt)
	if err != nil {
		return Class{}, store.Classify("school.CreateClass", "class", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListClasses(ctx context.Context) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.class_name, c.division, c.academic_year, c.created_at,
			(SELECT count(*) FROM students s WHERE s.class_id = c.id),
			(SELECT count(*) FROM subjects sb WHERE sb.class_id = c.id)
		FROM classes c
		ORDER BY c.class_name ASC
	`)
	if err != nil {
		return nil, store.Classify("school.ListClasses", "class", errors.Wrap(err, "querying classes"))
	}
	defer rows.Close()

	var res []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.ClassName, &c.Division, &c.AcademicYear, &c.CreatedAt, &c.StudentCount, &c.SubjectCount); err != nil {
			return nil, store.Classify("school.ListClasses", "class", err)
		}
		res = append(res, c)
	}
	return res, store.Classify("school.ListClasses", "class", rows.Err())
}

func insertUser(ctx context.Context, q store.Querier, u User) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt)
	return err
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u User) (User, error) {
	if err := insertUser(ctx, r.db, u); err != nil {
		return User{}, store.Classify("school.CreateUser", "user", err)
	}
	return u, nil
}

// CreateTeacher inserts the login and the teacher profile in one transaction.
func (r *PostgresRepository) CreateTeacher(ctx context.Context, u User, t Teacher) (Teacher, error) {
	err := store.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO teachers (id, user_id, department, created_at)
			VALUES ($1, $2, $3, $4)
		`, t.ID, u.ID, t.Department, t.CreatedAt)
		return err
	})
	if err != nil {
		return Teacher{}, store.Classify("school.CreateTeacher", "teacher", err)
	}
	return t, nil
}

func (r *PostgresRepository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, u.name, u.email, t.department, t.created_at,
			(SELECT count(*) FROM subjects s WHERE s.teacher_id = t.id)
		FROM teachers t
		JOIN users u ON u.id = t.user_id
		ORDER BY u.name ASC
	`)
	if err != nil {
		return nil, store.Classify("school.ListTeachers", "teacher", errors.Wrap(err, "querying teachers"))
	}
	defer rows.Close()

	var res []Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Email, &t.Department, &t.CreatedAt, &t.SubjectCount); err != nil {
			return nil, store.Classify("school.ListTeachers", "teacher", err)
		}
		res = append(res, t)
	}
	return res, store.Classify("school.ListTeachers", "teacher", rows.Err())
}

// CreateStudent inserts the login and the student profile in one transaction.
func (r *PostgresRepository) CreateStudent(ctx context.Context, u User, s Student) (Student, error) {
	err := store.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO students (id, user_id, roll_no, class_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, s.ID, u.ID, s.RollNo, s.ClassID, s.CreatedAt)
		return err
	})
	if err != nil {
		return Student{}, store.Classify("school.CreateStudent", "student", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.user_id, u.name, u.email, s.roll_no, s.class_id,
			c.class_name || ' ' || c.division, s.created_at
		FROM students s
		JOIN users u ON u.id = s.user_id
		JOIN classes c ON c.id = s.class_id
		ORDER BY s.roll_no ASC
	`)
	if err != nil {
		return nil, store.Classify("school.ListStudents", "student", errors.Wrap(err, "querying students"))
	}
	defer rows.Close()

	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Email, &s.RollNo, &s.ClassID, &s.ClassLabel, &s.CreatedAt); err != nil {
			return nil, store.Classify("school.ListStudents", "student", err)
		}
		res = append(res, s)
	}
	return res, store.Classify("school.ListStudents", "student", rows.Err())
}

func (r *PostgresRepository) CreateSubject(ctx context.Context, s Subject) (Subject, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subjects (id, subject_code, subject_name, class_id, teacher_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.SubjectCode, s.SubjectName, s.ClassID, s.TeacherID, s.CreatedAt)
	if err != nil {
		return Subject{}, store.Classify("school.CreateSubject", "subject", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListSubjects(ctx context.Context, classID string) ([]Subject, error) {
	query := `SELECT id, subject_code, subject_name, class_id, teacher_id, created_at FROM subjects`
	var args []any
	if classID != "" {
		query += ` WHERE class_id = $1`
		args = append(args, classID)
	}
	query += ` ORDER BY subject_code ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify("school.ListSubjects", "subject", errors.Wrap(err, "querying subjects"))
	}
	defer rows.Close()

	var res []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.SubjectCode, &s.SubjectName, &s.ClassID, &s.TeacherID, &s.CreatedAt); err != nil {
			return nil, store.Classify("school.ListSubjects", "subject", err)
		}
		res = append(res, s)
	}
	return res, store.Classify("school.ListSubjects", "subject", rows.Err())
}

func (r *PostgresRepository) GetSubject(ctx context.Context, id string) (Subject, error) {
	var s Subject
	err := r.db.QueryRowContext(ctx, `
		SELECT id, subject_code, subject_name, class_id, teacher_id, created_at
		FROM subjects WHERE id = $1
	`, id).Scan(&s.ID, &s.SubjectCode, &s.SubjectName, &s.ClassID, &s.TeacherID, &s.CreatedAt)
	if err != nil {
		return Subject{}, store.Classify("school.GetSubject", "subject", err)
	}
	return s, nil
}

const userColumns = `
	SELECT u.id, u.name, u.email, u.password_hash, u.role, u.created_at,
		COALESCE(t.id::text, ''), COALESCE(s.id::text, '')
	FROM users u
	LEFT JOIN teachers t ON t.user_id = u.id
	LEFT JOIN students s ON s.user_id = u.id
`

func scanUser(row *sql.Row) (User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.TeacherID, &u.StudentID); err != nil {
		return User{}, err
	}
	u.Role = auth.Role(role)
	return u, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, userColumns+` WHERE u.email = $1`, email))
	if err != nil {
		return User{}, store.Classify("school.GetUserByEmail", "user", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, userColumns+` WHERE u.id = $1`, id))
	if err != nil {
		return User{}, store.Classify("school.GetUser", "user", err)
	}
	return u, nil
}

var entityTables = map[Entity]string{
	EntityClass:   "classes",
	EntityTeacher: "teachers",
	EntityStudent: "students",
	EntitySubject: "subjects",
}

func (r *PostgresRepository) Exists(ctx context.Context, entity Entity, id string) (bool, error) {
	table, ok := entityTables[entity]
	if !ok {
		return false, fmt.Errorf("unknown entity %q", entity)
	}
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, store.Classify("school.Exists", string(entity), err)
	}
	return exists, nil
}

func (r *PostgresRepository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT (SELECT count(*) FROM classes),
			(SELECT count(*) FROM teachers),
			(SELECT count(*) FROM students),
			(SELECT count(*) FROM subjects)
	`).Scan(&c.Classes, &c.Teachers, &c.Students, &c.Subjects)
	if err != nil {
		return Counts{}, store.Classify("school.Counts", "counts", err)
	}
	return c, nil
}

func (r *PostgresRepository) CountSubjectsForTeacher(ctx context.Context, teacherID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM subjects WHERE teacher_id = $1`, teacherID).Scan(&n)
	if err != nil {
		return 0, store.Classify("school.CountSubjectsForTeacher", "subject", err)
	}
	return n, nil
}
