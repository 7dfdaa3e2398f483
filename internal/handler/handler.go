// Package handler exposes the engine over HTTP with gin.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classroll/internal/apperr"
	"classroll/internal/attendance"
	"classroll/internal/auth"
	"classroll/internal/dashboard"
	"classroll/internal/school"
	"classroll/internal/timetable"
)

// TokenConfig signs and verifies access tokens.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	TTL        time.Duration
}

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) bool

type Handler struct {
	school    *school.Service
	timetable *timetable.Checker
	ledger    *attendance.Ledger
	dash      *dashboard.Summarizer
	tokens    TokenConfig
	threshold float64
	probes    map[string]Probe
	loginMW   []gin.HandlerFunc
}

// Deps are the services a Handler serves. LoginLimit, when set, runs before
// POST /api/auth/login, e.g. a per-IP rate limiter.
type Deps struct {
	School     *school.Service
	Timetable  *timetable.Checker
	Ledger     *attendance.Ledger
	Dashboard  *dashboard.Summarizer
	Tokens     TokenConfig
	Threshold  float64
	Probes     map[string]Probe
	LoginLimit gin.HandlerFunc
}

func New(d Deps) *Handler {
	if d.Threshold <= 0 {
		d.Threshold = attendance.DefaultThreshold
	}
	var loginMW []gin.HandlerFunc
	if d.LoginLimit != nil {
		loginMW = append(loginMW, d.LoginLimit)
	}
	return &Handler{
		school:    d.School,
		timetable: d.Timetable,
		ledger:    d.Ledger,
		dash:      d.Dashboard,
		tokens:    d.Tokens,
		threshold: d.Threshold,
		probes:    d.Probes,
		loginMW:   loginMW,
	}
}

// Routes mounts every endpoint on r. authed runs after token verification on
// every authenticated route, e.g. the rate limiter.
func (h *Handler) Routes(r gin.IRouter, authed ...gin.HandlerFunc) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.POST("/auth/login", append(h.loginMW, h.Login)...)

	priv := api.Group("", append([]gin.HandlerFunc{auth.Authenticate(h.tokens.SigningKey, h.tokens.Issuer)}, authed...)...)
	priv.GET("/auth/me", h.Me)
	priv.GET("/admin/class", h.ListClasses)
	priv.GET("/admin/teacher", h.ListTeachers)
	priv.GET("/admin/student", h.ListStudents)
	priv.GET("/admin/subject", h.ListSubjects)
	priv.GET("/timetable", h.ListTimetable)
	priv.GET("/attendance", h.ListAttendance)
	priv.GET("/attendance/percentage", h.AttendancePercentage)
	priv.GET("/dashboard/stats", h.DashboardStats)

	admin := priv.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/admin/class", h.CreateClass)
	admin.POST("/admin/teacher", h.CreateTeacher)
	admin.POST("/admin/student", h.CreateStudent)
	admin.POST("/admin/subject", h.CreateSubject)
	admin.POST("/timetable", h.CreateTimetableEntry)
	admin.GET("/reports/defaulters", h.Defaulters)

	teacher := priv.Group("", auth.RequireRole(auth.RoleTeacher))
	teacher.POST("/attendance", h.MarkAttendance)
}

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, probe := range h.probes {
		ok := probe(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// bindJSON decodes the body into v, answering 400 on malformed JSON.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return false
	}
	return true
}

// writeError maps an engine error onto a status code and JSON body.
func writeError(c *gin.Context, err error) {
	var ce *timetable.ConflictError
	if errors.As(err, &ce) {
		c.JSON(http.StatusConflict, gin.H{
			"error":    ce.Error(),
			"scope":    ce.Scope,
			"conflict": ce.Existing,
		})
		return
	}

	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.ErrValidation:
		status = http.StatusBadRequest
	case apperr.ErrForbidden:
		status = http.StatusForbidden
	case apperr.ErrNotFound:
		status = http.StatusNotFound
	case apperr.ErrConflict, apperr.ErrDuplicate:
		status = http.StatusConflict
	case apperr.ErrStore:
		status = http.StatusServiceUnavailable
	}

	body := gin.H{}
	var ae *apperr.Error
	switch {
	case status == http.StatusInternalServerError:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		body["error"] = "internal error"
	case status == http.StatusServiceUnavailable:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		body["error"] = "service temporarily unavailable, retry"
	case errors.As(err, &ae):
		body["error"] = ae.Message
		if len(ae.Fields) > 0 {
			body["fields"] = ae.Fields
		}
	default:
		body["error"] = err.Error()
	}
	c.JSON(status, body)
}
