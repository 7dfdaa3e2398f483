package memory

import (
	"context"

	"classroll/internal/apperr"
	"classroll/internal/school"
)

type SchoolRepository struct {
	s *Store
}

var _ school.Repository = (*SchoolRepository)(nil)

func (r *SchoolRepository) CreateClass(ctx context.Context, c school.Class) (school.Class, error) {
	if err := ctxErr(ctx, "school.CreateClass"); err != nil {
		return school.Class{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.classes {
		if ex.ClassName == c.ClassName && ex.Division == c.Division && ex.AcademicYear == c.AcademicYear {
			return school.Class{}, apperr.Duplicate("school.CreateClass", "class")
		}
	}
	r.s.classes = append(r.s.classes, c)
	return c, nil
}

func (r *SchoolRepository) ListClasses(ctx context.Context) ([]school.Class, error) {
	if err := ctxErr(ctx, "school.ListClasses"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res := sortBy(r.s.classes, func(a, b school.Class) bool { return a.ClassName < b.ClassName })
	for i := range res {
		for _, st := range r.s.students {
			if st.ClassID == res[i].ID {
				res[i].StudentCount++
			}
		}
		for _, sb := range r.s.subjects {
			if sb.ClassID == res[i].ID {
				res[i].SubjectCount++
			}
		}
	}
	return res, nil
}

// addUser must be called with the lock held.
func (r *SchoolRepository) addUser(op string, u school.User) error {
	if _, taken := r.s.emails[u.Email]; taken {
		return apperr.Duplicate(op, "user")
	}
	r.s.users[u.ID] = u
	r.s.emails[u.Email] = u.ID
	return nil
}

func (r *SchoolRepository) CreateUser(ctx context.Context, u school.User) (school.User, error) {
	if err := ctxErr(ctx, "school.CreateUser"); err != nil {
		return school.User{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.addUser("school.CreateUser", u); err != nil {
		return school.User{}, err
	}
	return u, nil
}

func (r *SchoolRepository) CreateTeacher(ctx context.Context, u school.User, t school.Teacher) (school.Teacher, error) {
	if err := ctxErr(ctx, "school.CreateTeacher"); err != nil {
		return school.Teacher{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.addUser("school.CreateTeacher", u); err != nil {
		return school.Teacher{}, err
	}
	t.UserID, t.Name, t.Email = u.ID, u.Name, u.Email
	r.s.teachers = append(r.s.teachers, t)
	return t, nil
}

func (r *SchoolRepository) ListTeachers(ctx context.Context) ([]school.Teacher, error) {
	if err := ctxErr(ctx, "school.ListTeachers"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res := sortBy(r.s.teachers, func(a, b school.Teacher) bool { return a.Name < b.Name })
	for i := range res {
		for _, sb := range r.s.subjects {
			if sb.TeacherID == res[i].ID {
				res[i].SubjectCount++
			}
		}
	}
	return res, nil
}

func (r *SchoolRepository) CreateStudent(ctx context.Context, u school.User, st school.Student) (school.Student, error) {
	if err := ctxErr(ctx, "school.CreateStudent"); err != nil {
		return school.Student{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ci := r.s.classIndex(st.ClassID)
	if ci < 0 {
		return school.Student{}, referenced("school.CreateStudent")
	}
	for _, ex := range r.s.students {
		if ex.RollNo == st.RollNo && ex.ClassID == st.ClassID {
			return school.Student{}, apperr.Duplicate("school.CreateStudent", "student")
		}
	}
	if err := r.addUser("school.CreateStudent", u); err != nil {
		return school.Student{}, err
	}
	st.UserID, st.Name, st.Email = u.ID, u.Name, u.Email
	st.ClassLabel = r.s.classes[ci].Label()
	r.s.students = append(r.s.students, st)
	return st, nil
}

func (r *SchoolRepository) ListStudents(ctx context.Context) ([]school.Student, error) {
	if err := ctxErr(ctx, "school.ListStudents"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortBy(r.s.students, func(a, b school.Student) bool { return a.RollNo < b.RollNo }), nil
}

func (r *SchoolRepository) CreateSubject(ctx context.Context, sb school.Subject) (school.Subject, error) {
	if err := ctxErr(ctx, "school.CreateSubject"); err != nil {
		return school.Subject{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.classIndex(sb.ClassID) < 0 || r.s.teacherIndex(sb.TeacherID) < 0 {
		return school.Subject{}, referenced("school.CreateSubject")
	}
	for _, ex := range r.s.subjects {
		if ex.SubjectCode == sb.SubjectCode && ex.ClassID == sb.ClassID {
			return school.Subject{}, apperr.Duplicate("school.CreateSubject", "subject")
		}
	}
	r.s.subjects = append(r.s.subjects, sb)
	return sb, nil
}

func (r *SchoolRepository) ListSubjects(ctx context.Context, classID string) ([]school.Subject, error) {
	if err := ctxErr(ctx, "school.ListSubjects"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var res []school.Subject
	for _, sb := range r.s.subjects {
		if classID == "" || sb.ClassID == classID {
			res = append(res, sb)
		}
	}
	return sortBy(res, func(a, b school.Subject) bool { return a.SubjectCode < b.SubjectCode }), nil
}

func (r *SchoolRepository) GetSubject(ctx context.Context, id string) (school.Subject, error) {
	if err := ctxErr(ctx, "school.GetSubject"); err != nil {
		return school.Subject{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if i := r.s.subjectIndex(id); i >= 0 {
		return r.s.subjects[i], nil
	}
	return school.Subject{}, apperr.NotFound("school.GetSubject", "subject")
}

// withProfile fills the profile ids; the lock must be held.
func (r *SchoolRepository) withProfile(u school.User) school.User {
	for _, t := range r.s.teachers {
		if t.UserID == u.ID {
			u.TeacherID = t.ID
		}
	}
	for _, st := range r.s.students {
		if st.UserID == u.ID {
			u.StudentID = st.ID
		}
	}
	return u
}

func (r *SchoolRepository) GetUserByEmail(ctx context.Context, email string) (school.User, error) {
	if err := ctxErr(ctx, "school.GetUserByEmail"); err != nil {
		return school.User{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[email]
	if !ok {
		return school.User{}, apperr.NotFound("school.GetUserByEmail", "user")
	}
	return r.withProfile(r.s.users[id]), nil
}

func (r *SchoolRepository) GetUser(ctx context.Context, id string) (school.User, error) {
	if err := ctxErr(ctx, "school.GetUser"); err != nil {
		return school.User{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return school.User{}, apperr.NotFound("school.GetUser", "user")
	}
	return r.withProfile(u), nil
}

func (r *SchoolRepository) Exists(ctx context.Context, entity school.Entity, id string) (bool, error) {
	if err := ctxErr(ctx, "school.Exists"); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	switch entity {
	case school.EntityClass:
		return r.s.classIndex(id) >= 0, nil
	case school.EntityTeacher:
		return r.s.teacherIndex(id) >= 0, nil
	case school.EntityStudent:
		return r.s.studentIndex(id) >= 0, nil
	case school.EntitySubject:
		return r.s.subjectIndex(id) >= 0, nil
	}
	return false, apperr.Validation("school.Exists", "unknown entity %q", entity)
}

func (r *SchoolRepository) Counts(ctx context.Context) (school.Counts, error) {
	if err := ctxErr(ctx, "school.Counts"); err != nil {
		return school.Counts{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return school.Counts{
		Classes:  len(r.s.classes),
		Teachers: len(r.s.teachers),
		Students: len(r.s.students),
		Subjects: len(r.s.subjects),
	}, nil
}

func (r *SchoolRepository) CountSubjectsForTeacher(ctx context.Context, teacherID string) (int, error) {
	if err := ctxErr(ctx, "school.CountSubjectsForTeacher"); err != nil {
		return 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, sb := range r.s.subjects {
		if sb.TeacherID == teacherID {
			n++
		}
	}
	return n, nil
}
