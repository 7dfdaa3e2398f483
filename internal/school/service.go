// Package school manages the reference data the timetable and attendance engine
// depend on: classes, teachers, students, subjects and their logins.
package school

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"classroll/internal/apperr"
	"classroll/internal/auth"
	"classroll/internal/validation"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or wrong password.
var ErrInvalidCredentials = apperr.New(apperr.ErrValidation, "school.Authenticate", "invalid credentials")

// Entity names used by Repository.Exists.
type Entity string

const (
	EntityClass   Entity = "class"
	EntityTeacher Entity = "teacher"
	EntityStudent Entity = "student"
	EntitySubject Entity = "subject"
)

// Repository persists reference data. Create methods report uniqueness violations
// as apperr.ErrDuplicate.
type Repository interface {
	CreateClass(ctx context.Context, c Class) (Class, error)
	ListClasses(ctx context.Context) ([]Class, error)
	CreateUser(ctx context.Context, u User) (User, error)
	CreateTeacher(ctx context.Context, u User, t Teacher) (Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
	CreateStudent(ctx context.Context, u User, s Student) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	ListSubjects(ctx context.Context, classID string) ([]Subject, error)
	GetSubject(ctx context.Context, id string) (Subject, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	Exists(ctx context.Context, entity Entity, id string) (bool, error)
	Counts(ctx context.Context) (Counts, error)
	CountSubjectsForTeacher(ctx context.Context, teacherID string) (int, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	nc.ClassName = validation.CleanString(nc.ClassName)
	nc.Division = validation.CleanString(nc.Division)
	nc.AcademicYear = validation.CleanString(nc.AcademicYear)
	if err := validation.Struct("school.CreateClass", nc); err != nil {
		return Class{}, err
	}
	return s.repo.CreateClass(ctx, Class{
		ID:           uuid.NewString(),
		ClassName:    nc.ClassName,
		Division:     nc.Division,
		AcademicYear: nc.AcademicYear,
		CreatedAt:    time.Now().UTC(),
	})
}

func (s *Service) ListClasses(ctx context.Context) ([]Class, error) {
	return s.repo.ListClasses(ctx)
}

func (s *Service) CreateTeacher(ctx context.Context, nt NewTeacher) (Teacher, error) {
	nt.Name = validation.CleanString(nt.Name)
	nt.Email = validation.CleanString(nt.Email, true /* lower */)
	nt.Department = validation.CleanString(nt.Department)
	if err := validation.Struct("school.CreateTeacher", nt); err != nil {
		return Teacher{}, err
	}
	usr, err := newUser(nt.Name, nt.Email, nt.Password, auth.RoleTeacher)
	if err != nil {
		return Teacher{}, err
	}
	return s.repo.CreateTeacher(ctx, usr, Teacher{
		ID:         uuid.NewString(),
		UserID:     usr.ID,
		Name:       usr.Name,
		Email:      usr.Email,
		Department: nt.Department,
		CreatedAt:  usr.CreatedAt,
	})
}

func (s *Service) ListTeachers(ctx context.Context) ([]Teacher, error) {
	return s.repo.ListTeachers(ctx)
}

// CreateStudent fails with apperr.ErrDuplicate when the roll number is taken within the class.
func (s *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	ns.Name = validation.CleanString(ns.Name)
	ns.Email = validation.CleanString(ns.Email, true /* lower */)
	ns.RollNo = validation.CleanString(ns.RollNo)
	if err := validation.Struct("school.CreateStudent", ns); err != nil {
		return Student{}, err
	}
	if err := s.Ensure(ctx, Refs{ClassID: ns.ClassID}); err != nil {
		return Student{}, err
	}
	usr, err := newUser(ns.Name, ns.Email, ns.Password, auth.RoleStudent)
	if err != nil {
		return Student{}, err
	}
	return s.repo.CreateStudent(ctx, usr, Student{
		ID:        uuid.NewString(),
		UserID:    usr.ID,
		Name:      usr.Name,
		Email:     usr.Email,
		RollNo:    ns.RollNo,
		ClassID:   ns.ClassID,
		CreatedAt: usr.CreatedAt,
	})
}

func (s *Service) ListStudents(ctx context.Context) ([]Student, error) {
	return s.repo.ListStudents(ctx)
}

// CreateSubject fails with apperr.ErrDuplicate when the code is taken within the class.
func (s *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	ns.SubjectCode = validation.CleanString(ns.SubjectCode)
	ns.SubjectName = validation.CleanString(ns.SubjectName)
	if err := validation.Struct("school.CreateSubject", ns); err != nil {
		return Subject{}, err
	}
	if err := s.Ensure(ctx, Refs{ClassID: ns.ClassID, TeacherID: ns.TeacherID}); err != nil {
		return Subject{}, err
	}
	return s.repo.CreateSubject(ctx, Subject{
		ID:          uuid.NewString(),
		SubjectCode: ns.SubjectCode,
		SubjectName: ns.SubjectName,
		ClassID:     ns.ClassID,
		TeacherID:   ns.TeacherID,
		CreatedAt:   time.Now().UTC(),
	})
}

// ListSubjects returns every subject, or only those of classID when set.
func (s *Service) ListSubjects(ctx context.Context, classID string) ([]Subject, error) {
	return s.repo.ListSubjects(ctx, classID)
}

// Ensure fails with apperr.ErrNotFound for the first referenced entity that does not exist.
func (s *Service) Ensure(ctx context.Context, refs Refs) error {
	checks := []struct {
		entity Entity
		id     string
	}{
		{EntityClass, refs.ClassID},
		{EntitySubject, refs.SubjectID},
		{EntityTeacher, refs.TeacherID},
		{EntityStudent, refs.StudentID},
	}
	for _, chk := range checks {
		if chk.id == "" {
			continue
		}
		if _, err := uuid.Parse(chk.id); err != nil {
			return apperr.NotFound("school.Ensure", string(chk.entity))
		}
		ok, err := s.repo.Exists(ctx, chk.entity, chk.id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("school.Ensure", string(chk.entity))
		}
	}
	return nil
}

// EnsureTaught fails with apperr.ErrValidation unless the subject belongs to classID
// and is taught by teacherID.
func (s *Service) EnsureTaught(ctx context.Context, subjectID, classID, teacherID string) error {
	sub, err := s.repo.GetSubject(ctx, subjectID)
	if err != nil {
		return err
	}
	switch {
	case sub.ClassID != classID:
		return apperr.Validation("school.EnsureTaught", "subject %s does not belong to the class", sub.SubjectCode)
	case sub.TeacherID != teacherID:
		return apperr.Validation("school.EnsureTaught", "subject %s is taught by another teacher", sub.SubjectCode)
	}
	return nil
}

// Authenticate checks credentials and returns the user with its profile ids.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	usr, err := s.repo.GetUserByEmail(ctx, validation.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := usr.CheckPassword(password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// EnsureAdmin creates an admin login unless one with the same email exists.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (User, bool, error) {
	email = validation.CleanString(email, true /* lower */)
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return User{}, false, err
	}
	usr, err := newUser(validation.CleanString(name), email, password, auth.RoleAdmin)
	if err != nil {
		return User{}, false, err
	}
	created, err := s.repo.CreateUser(ctx, usr)
	return created, err == nil, err
}

func (s *Service) Counts(ctx context.Context) (Counts, error) {
	return s.repo.Counts(ctx)
}

func (s *Service) CountSubjectsForTeacher(ctx context.Context, teacherID string) (int, error) {
	return s.repo.CountSubjectsForTeacher(ctx, teacherID)
}

func newUser(name, email, password string, role auth.Role) (User, error) {
	if password == "" {
		return User{}, apperr.Validation("school.newUser", "password is required")
	}
	usr := User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(password); err != nil {
		return User{}, err
	}
	return usr, nil
}
