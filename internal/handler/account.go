package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campusattend/internal/auth"
	"campusattend/internal/profile"
)

type signupRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
	Name       string `json:"name" binding:"required"`
	RollNumber string `json:"roll_number" binding:"required"`
}

// Signup registers a student profile and logs the student in.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if h.admins.IsAdmin(email) {
		c.JSON(http.StatusConflict, gin.H{"error": "email belongs to a teacher account"})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	err = h.profiles.Create(ctx, profile.Profile{
		StudentID:    email,
		DisplayName:  strings.TrimSpace(req.Name),
		RollNumber:   strings.TrimSpace(req.RollNumber),
		PasswordHash: hash,
	})
	if errors.Is(err, profile.ErrExists) {
		c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
		return
	}
	if err != nil {
		log.Printf("signup %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}
	h.issue(c, http.StatusCreated, email, auth.RoleStudent)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a student. Teacher accounts must use AdminLogin.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if h.admins.IsAdmin(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please use the admin login page."})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	p, err := h.profiles.Get(ctx, email)
	if err != nil {
		log.Printf("login %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if p == nil || !auth.CheckPassword(p.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials. Try again."})
		return
	}
	h.issue(c, http.StatusOK, email, auth.RoleStudent)
}

// AdminLogin authenticates a teacher against the admin registry.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	admin, err := h.admins.Authenticate(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin credentials."})
		return
	}
	h.issue(c, http.StatusOK, admin.Email, auth.RoleTeacher)
}

// Refresh trades a refresh token for a new pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, err := auth.Parse(req.RefreshToken, h.tokens.SigningKey, h.tokens.Issuer)
	if err != nil || claims.Kind != auth.KindRefresh {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if claims.Role == auth.RoleTeacher && !h.admins.IsAdmin(claims.Subject) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	h.issue(c, http.StatusOK, claims.Subject, claims.Role)
}

// Me returns the calling student's profile.
func (h *Handler) Me(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	ctx, cancel := h.ctx(c)
	defer cancel()
	p, err := h.profiles.Get(ctx, claims.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p, "complete": p.Complete()})
}
