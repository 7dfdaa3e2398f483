package school_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classroll/internal/apperr"
	"classroll/internal/auth"
	"classroll/internal/school"
	"classroll/internal/store/memory"
)

func newService() *school.Service {
	return school.NewService(memory.New().School())
}

func TestCreateClassDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	c, err := svc.CreateClass(ctx, school.NewClass{ClassName: " Class 10 ", Division: "A", AcademicYear: "2024-25"})
	require.NoError(t, err)
	assert.Equal(t, "Class 10", c.ClassName)
	assert.Equal(t, "Class 10 A", c.Label())

	_, err = svc.CreateClass(ctx, school.NewClass{ClassName: "Class 10", Division: "A", AcademicYear: "2024-25"})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)

	_, err = svc.CreateClass(ctx, school.NewClass{ClassName: "Class 10", Division: "A", AcademicYear: "2025-26"})
	assert.NoError(t, err, "another academic year is a different class")

	_, err = svc.CreateClass(ctx, school.NewClass{ClassName: "Class 10"})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, ae.Fields, "division")
	assert.Contains(t, ae.Fields, "academicYear")
}

func TestRollNoUniqueWithinClass(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	a, err := svc.CreateClass(ctx, school.NewClass{ClassName: "Class 8", Division: "A", AcademicYear: "2024-25"})
	require.NoError(t, err)
	b, err := svc.CreateClass(ctx, school.NewClass{ClassName: "Class 8", Division: "B", AcademicYear: "2024-25"})
	require.NoError(t, err)

	_, err = svc.CreateStudent(ctx, school.NewStudent{Name: "Asha", Email: "asha@pupil.test", Password: "secret1", RollNo: "1", ClassID: a.ID})
	require.NoError(t, err)
	_, err = svc.CreateStudent(ctx, school.NewStudent{Name: "Ben", Email: "ben@pupil.test", Password: "secret1", RollNo: "1", ClassID: a.ID})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)
	_, err = svc.CreateStudent(ctx, school.NewStudent{Name: "Ben", Email: "ben@pupil.test", Password: "secret1", RollNo: "1", ClassID: b.ID})
	assert.NoError(t, err)

	_, err = svc.CreateStudent(ctx, school.NewStudent{Name: "Cy", Email: "asha@pupil.test", Password: "secret1", RollNo: "2", ClassID: a.ID})
	assert.ErrorIs(t, err, apperr.ErrDuplicate, "email is taken")

	_, err = svc.CreateStudent(ctx, school.NewStudent{Name: "Di", Email: "di@pupil.test", Password: "secret1", RollNo: "3", ClassID: "0b8a0b55-6f54-4d0c-9d1c-2a3b4c5d6e7f"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	students, err := svc.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	classes, err := svc.ListClasses(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, 1, classes[0].StudentCount)
}

func TestSubjectCodeScopedToClass(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	a, err := svc.CreateClass(ctx, school.NewClass{ClassName: "Class 7", Division: "A", AcademicYear: "2024-25"})
	require.NoError(t, err)
	b, err := svc.CreateClass(ctx, school.NewClass{ClassName: "Class 7", Division: "B", AcademicYear: "2024-25"})
	require.NoError(t, err)
	teacher, err := svc.CreateTeacher(ctx, school.NewTeacher{Name: "Kay", Email: "kay@school.test", Password: "secret1", Department: "Science"})
	require.NoError(t, err)

	_, err = svc.CreateSubject(ctx, school.NewSubject{SubjectCode: "SCI", SubjectName: "Science", ClassID: a.ID, TeacherID: teacher.ID})
	require.NoError(t, err)
	_, err = svc.CreateSubject(ctx, school.NewSubject{SubjectCode: "SCI", SubjectName: "Science", ClassID: a.ID, TeacherID: teacher.ID})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)
	_, err = svc.CreateSubject(ctx, school.NewSubject{SubjectCode: "SCI", SubjectName: "Science", ClassID: b.ID, TeacherID: teacher.ID})
	assert.NoError(t, err)

	_, err = svc.CreateSubject(ctx, school.NewSubject{SubjectCode: "ART", SubjectName: "Art", ClassID: a.ID, TeacherID: "not-a-uuid"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	n, err := svc.CountSubjectsForTeacher(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	onlyA, err := svc.ListSubjects(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, onlyA, 1)

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, school.Counts{Classes: 2, Teachers: 1, Students: 0, Subjects: 2}, counts)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	teacher, err := svc.CreateTeacher(ctx, school.NewTeacher{Name: "Lin", Email: "Lin@School.test", Password: "secret1", Department: "Maths"})
	require.NoError(t, err)
	assert.Equal(t, "lin@school.test", teacher.Email)

	usr, err := svc.Authenticate(ctx, "LIN@school.test ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleTeacher, usr.Role)
	assert.Empty(t, usr.StudentID)
	id := usr.Identity()
	assert.Equal(t, teacher.ID, id.ProfileID)

	_, err = svc.Authenticate(ctx, "lin@school.test", "wrong")
	assert.ErrorIs(t, err, school.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@school.test", "secret1")
	assert.ErrorIs(t, err, school.ErrInvalidCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	first, created, err := svc.EnsureAdmin(ctx, "Admin", "admin@school.test", "admin123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, auth.RoleAdmin, first.Role)

	again, created, err := svc.EnsureAdmin(ctx, "Admin", "ADMIN@school.test", "other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	usr, err := svc.GetUser(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@school.test", usr.Email)
	assert.Empty(t, usr.Identity().ProfileID)
}

func TestEnsure(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	c, err := svc.CreateClass(ctx, school.NewClass{ClassName: "Class 6", Division: "A", AcademicYear: "2024-25"})
	require.NoError(t, err)

	assert.NoError(t, svc.Ensure(ctx, school.Refs{ClassID: c.ID}))
	assert.NoError(t, svc.Ensure(ctx, school.Refs{}))
	assert.ErrorIs(t, svc.Ensure(ctx, school.Refs{ClassID: c.ID, SubjectID: "missing"}), apperr.ErrNotFound)
}

func TestEnsureTaught(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	c6, err := svc.CreateClass(ctx, school.NewClass{ClassName: "Class 6", Division: "A", AcademicYear: "2024-25"})
	require.NoError(t, err)
	c7, err := svc.CreateClass(ctx, school.NewClass{ClassName: "Class 7", Division: "A", AcademicYear: "2024-25"})
	require.NoError(t, err)
	tina, err := svc.CreateTeacher(ctx, school.NewTeacher{Name: "Tina", Email: "tina@school.test", Password: "secret1", Department: "Art"})
	require.NoError(t, err)
	uma, err := svc.CreateTeacher(ctx, school.NewTeacher{Name: "Uma", Email: "uma@school.test", Password: "secret1", Department: "Art"})
	require.NoError(t, err)
	art, err := svc.CreateSubject(ctx, school.NewSubject{SubjectCode: "ART", SubjectName: "Art", ClassID: c6.ID, TeacherID: tina.ID})
	require.NoError(t, err)

	assert.NoError(t, svc.EnsureTaught(ctx, art.ID, c6.ID, tina.ID))
	assert.ErrorIs(t, svc.EnsureTaught(ctx, art.ID, c7.ID, tina.ID), apperr.ErrValidation)
	assert.ErrorIs(t, svc.EnsureTaught(ctx, art.ID, c6.ID, uma.ID), apperr.ErrValidation)
	assert.ErrorIs(t, svc.EnsureTaught(ctx, c6.ID, c6.ID, tina.ID), apperr.ErrNotFound)
}
