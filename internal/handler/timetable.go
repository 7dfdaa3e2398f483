package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classroll/internal/timeslot"
	"classroll/internal/timetable"
)

func (h *Handler) CreateTimetableEntry(c *gin.Context) {
	var req timetable.NewEntry
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.timetable.CheckAndInsert(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// ListTimetable accepts optional classId, teacherId and day query parameters.
func (h *Handler) ListTimetable(c *gin.Context) {
	entries, err := h.timetable.List(c.Request.Context(), timetable.Filter{
		ClassID:   c.Query("classId"),
		TeacherID: c.Query("teacherId"),
		Day:       timeslot.Weekday(c.Query("day")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(entries))
}
