package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"campusattend/internal/attendance"
	"campusattend/internal/auth"
	"campusattend/internal/metrics"
	"campusattend/internal/qrtoken"
)

// subject resolves the subject query parameter, defaulting to the teacher's registered subject.
func (h *Handler) subject(c *gin.Context) (issuer, subject string, ok bool) {
	claims, _ := auth.FromContext(c)
	issuer = claims.Subject
	subject = strings.TrimSpace(c.Query("subject"))
	if subject == "" {
		if admin, found := h.admins.Lookup(issuer); found {
			subject = admin.Subject
		}
	}
	if subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject is required."})
		return "", "", false
	}
	return issuer, subject, true
}

// QRCode renders the attendance QR for a subject as PNG, or as JSON with format=json.
func (h *Handler) QRCode(c *gin.Context) {
	issuer, subject, ok := h.subject(c)
	if !ok {
		return
	}
	token, err := qrtoken.Encode(issuer, subject)
	if errors.Is(err, qrtoken.ErrDelimiter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject may not contain " + qrtoken.Delimiter})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	size := qrtoken.DefaultSize
	if v := c.Query("size"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 64 && parsed <= 1024 {
			size = parsed
		}
	}

	if c.Query("format") == "json" {
		img, err := qrtoken.DataURL(token, size)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
			return
		}
		metrics.QRIssued()
		c.JSON(http.StatusOK, gin.H{"token": token, "subject": subject, "qr_data": img})
		return
	}

	png, err := qrtoken.PNG(token, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
		return
	}
	metrics.QRIssued()
	c.Data(http.StatusOK, "image/png", png)
}

// ListAttendance returns every event for the teacher's subject in creation order.
func (h *Handler) ListAttendance(c *gin.Context) {
	issuer, subject, ok := h.subject(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	events, err := h.att.Events(ctx, subject, issuer)
	if err != nil {
		log.Printf("list attendance %s/%s: %v", issuer, subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "A server error occurred."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject": subject, "events": events})
}

// DailyAttendance returns per-day totals shaped for a chart.
func (h *Handler) DailyAttendance(c *gin.Context) {
	issuer, subject, ok := h.subject(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	counts, err := h.att.DailyCounts(ctx, subject, issuer)
	if err != nil {
		log.Printf("daily attendance %s/%s: %v", issuer, subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "A server error occurred."})
		return
	}
	labels := make([]string, 0, len(counts))
	data := make([]int, 0, len(counts))
	for _, dc := range counts {
		labels = append(labels, dc.Date)
		data = append(data, dc.Count)
	}
	c.JSON(http.StatusOK, gin.H{"subject": subject, "counts": counts, "chart_labels": labels, "chart_data": data})
}

// LiveAttendance returns today's running total from the worker tally.
func (h *Handler) LiveAttendance(c *gin.Context) {
	issuer, subject, ok := h.subject(c)
	if !ok {
		return
	}
	if h.tally == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live tally not configured"})
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	today := h.att.Today()
	n, err := h.tally.Count(ctx, subject, issuer, today)
	if err != nil {
		log.Printf("live tally %s/%s: %v", issuer, subject, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live tally unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject": subject, "date": today, "count": n})
}

var _ Tally = (*attendance.Tally)(nil)
