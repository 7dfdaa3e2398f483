package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"classroll/internal/apperr"
	"classroll/internal/attendance"
	"classroll/internal/auth"
)

type markRequest struct {
	StudentID string            `json:"studentId"`
	SubjectID string            `json:"subjectId"`
	Date      string            `json:"date"`
	Status    attendance.Status `json:"status"`
}

// MarkAttendance records a mark on behalf of the calling teacher.
func (h *Handler) MarkAttendance(c *gin.Context) {
	id, _ := auth.FromContext(c)
	if id.Role != auth.RoleTeacher || id.ProfileID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "only teachers can mark attendance"})
		return
	}

	var req markRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := attendance.ParseDate(req.Date, h.ledger.Location())
	if err != nil {
		writeError(c, err)
		return
	}

	rec, err := h.ledger.Mark(c.Request.Context(), attendance.MarkInput{
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		TeacherID: id.ProfileID,
		Date:      date,
		Status:    req.Status,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListAttendance accepts optional studentId, subjectId and teacherId query parameters.
func (h *Handler) ListAttendance(c *gin.Context) {
	recs, err := h.ledger.List(c.Request.Context(), attendance.Filter{
		StudentID: c.Query("studentId"),
		SubjectID: c.Query("subjectId"),
		TeacherID: c.Query("teacherId"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(recs))
}

// AttendancePercentage aggregates one student (studentId) or one class (classId).
func (h *Handler) AttendancePercentage(c *gin.Context) {
	scope := attendance.Scope{StudentID: c.Query("studentId"), ClassID: c.Query("classId")}
	if scope.StudentID == "" && scope.ClassID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "studentId required"})
		return
	}
	stats, err := h.ledger.Stats(c.Request.Context(), scope)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Defaulters lists students below ?threshold=, or the configured threshold.
func (h *Handler) Defaulters(c *gin.Context) {
	threshold := h.threshold
	if v := c.Query("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(c, apperr.Validation("handler.Defaulters", "threshold must be a number"))
			return
		}
		threshold = parsed
	}
	list, err := h.ledger.Defaulters(c.Request.Context(), threshold)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) DashboardStats(c *gin.Context) {
	id, _ := auth.FromContext(c)
	sum, err := h.dash.Summarize(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
