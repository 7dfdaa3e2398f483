package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classroll/internal/school"
)

func (h *Handler) CreateClass(c *gin.Context) {
	var req school.NewClass
	if !bindJSON(c, &req) {
		return
	}
	cls, err := h.school.CreateClass(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cls)
}

func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.school.ListClasses(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(classes))
}

func (h *Handler) CreateTeacher(c *gin.Context) {
	var req school.NewTeacher
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.school.CreateTeacher(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) ListTeachers(c *gin.Context) {
	teachers, err := h.school.ListTeachers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(teachers))
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req school.NewStudent
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.school.CreateStudent(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.school.ListStudents(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(students))
}

func (h *Handler) CreateSubject(c *gin.Context) {
	var req school.NewSubject
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.school.CreateSubject(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// ListSubjects accepts an optional classId query parameter.
func (h *Handler) ListSubjects(c *gin.Context) {
	subjects, err := h.school.ListSubjects(c.Request.Context(), c.Query("classId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(subjects))
}

// nonNil renders empty lists as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
