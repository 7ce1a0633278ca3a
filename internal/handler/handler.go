package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusattend/internal/attendance"
	"campusattend/internal/auth"
	"campusattend/internal/profile"
)

// Tally reads the live per-day counts maintained by the worker.
type Tally interface {
	Count(ctx context.Context, subject, issuer, date string) (int, error)
}

// Tokens configures JWT issuance.
type Tokens struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Handler serves the attendance HTTP API.
type Handler struct {
	att      *attendance.Service
	profiles profile.Store
	admins   *auth.Registry
	tally    Tally // nil when Redis is not configured
	tokens   Tokens
	timeout  time.Duration
}

// New creates a handler. tally may be nil.
func New(att *attendance.Service, profiles profile.Store, admins *auth.Registry, tally Tally, tokens Tokens, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{att: att, profiles: profiles, admins: admins, tally: tally, tokens: tokens, timeout: timeout}
}

// Routes mounts the API on r.
func (h *Handler) Routes(r gin.IRouter) {
	v1 := r.Group("/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/signup", h.Signup)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/admin/login", h.AdminLogin)
	authGroup.POST("/refresh", h.Refresh)

	student := v1.Group("", auth.Require(h.tokens.SigningKey, h.tokens.Issuer, auth.RoleStudent))
	student.GET("/me", h.Me)
	student.POST("/attendance/scan", h.Scan)

	teacher := v1.Group("", auth.Require(h.tokens.SigningKey, h.tokens.Issuer, auth.RoleTeacher))
	teacher.GET("/qr", h.QRCode)
	teacher.GET("/attendance", h.ListAttendance)
	teacher.GET("/attendance/daily", h.DailyAttendance)
	teacher.GET("/attendance/live", h.LiveAttendance)
}

func (h *Handler) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *Handler) issue(c *gin.Context, status int, subject, role string) {
	pair, err := auth.Issue(subject, role, h.tokens.Issuer, h.tokens.SigningKey, h.tokens.AccessTTL, h.tokens.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(status, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp.Unix(),
		"role":          role,
	})
}
