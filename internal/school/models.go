package school

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"classroll/internal/auth"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         auth.Role `json:"role"`
	PasswordHash []byte    `json:"-"`
	TeacherID    string    `json:"teacherId,omitempty"`
	StudentID    string    `json:"studentId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Identity returns the auth identity of u, with the profile matching its role.
func (u User) Identity() auth.Identity {
	id := auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
	switch u.Role {
	case auth.RoleTeacher:
		id.ProfileID = u.TeacherID
	case auth.RoleStudent:
		id.ProfileID = u.StudentID
	}
	return id
}

type Class struct {
	ID           string    `json:"id"`
	ClassName    string    `json:"className"`
	Division     string    `json:"division"`
	AcademicYear string    `json:"academicYear"`
	StudentCount int       `json:"studentCount"`
	SubjectCount int       `json:"subjectCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Label is the human name of the class, e.g. "Class 10 A".
func (c Class) Label() string {
	return c.ClassName + " " + c.Division
}

type Teacher struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Department   string    `json:"department"`
	SubjectCount int       `json:"subjectCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Student struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	RollNo     string    `json:"rollNo"`
	ClassID    string    `json:"classId"`
	ClassLabel string    `json:"class"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Subject struct {
	ID          string    `json:"id"`
	SubjectCode string    `json:"subjectCode"`
	SubjectName string    `json:"subjectName"`
	ClassID     string    `json:"classId"`
	TeacherID   string    `json:"teacherId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Counts is the admin dashboard's entity totals.
type Counts struct {
	Classes  int `json:"classes"`
	Teachers int `json:"teachers"`
	Students int `json:"students"`
	Subjects int `json:"subjects"`
}

// NewClass contains information needed to create a Class.
type NewClass struct {
	ClassName    string `json:"className" validate:"required"`
	Division     string `json:"division" validate:"required"`
	AcademicYear string `json:"academicYear" validate:"required"`
}

// NewTeacher creates a teacher together with its login.
type NewTeacher struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Department string `json:"department" validate:"required"`
}

// NewStudent creates a student together with its login.
type NewStudent struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	RollNo   string `json:"rollNo" validate:"required"`
	ClassID  string `json:"classId" validate:"required,uuid"`
}

type NewSubject struct {
	SubjectCode string `json:"subjectCode" validate:"required"`
	SubjectName string `json:"subjectName" validate:"required"`
	ClassID     string `json:"classId" validate:"required,uuid"`
	TeacherID   string `json:"teacherId" validate:"required,uuid"`
}

// Refs names entities an operation depends on; empty ids are skipped.
type Refs struct {
	ClassID   string
	SubjectID string
	TeacherID string
	StudentID string
}
