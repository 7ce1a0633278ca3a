package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"campusattend/internal/attendance"
	"campusattend/internal/auth"
	"campusattend/internal/metrics"
)

// number accepts a JSON number or a numeric string. Anything else decodes to NaN,
// which the admission pipeline rejects as a bad request.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = number(math.NaN())
			return nil
		}
		b = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		v = math.NaN()
	}
	*n = number(v)
	return nil
}

type scanRequest struct {
	QRData    string  `json:"qr_data"`
	Latitude  *number `json:"latitude"`
	Longitude *number `json:"longitude"`
}

func (r scanRequest) scan(studentID string) attendance.Scan {
	s := attendance.Scan{StudentID: studentID, Token: r.QRData}
	if r.Latitude != nil {
		v := float64(*r.Latitude)
		s.Latitude = &v
	}
	if r.Longitude != nil {
		v := float64(*r.Longitude)
		s.Longitude = &v
	}
	return s
}

// Scan marks attendance for the calling student from a scanned QR payload.
func (h *Handler) Scan(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.ObserveScan(attendance.Outcome(attendance.ErrBadRequest), 0)
		writeScan(c, attendance.Event{}, fmt.Errorf("%w: %v", attendance.ErrBadRequest, err))
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	evt, err := h.att.Mark(ctx, req.scan(claims.Subject))
	writeScan(c, evt, err)
}

func writeScan(c *gin.Context, evt attendance.Event, err error) {
	status, msg := scanResponse(err)
	body := gin.H{"message": msg}
	if err == nil {
		body["event_id"] = evt.ID
		body["timestamp"] = evt.CreatedAt
	} else {
		body["reason"] = attendance.Outcome(err)
		body["retryable"] = attendance.Retryable(err)
	}
	c.JSON(status, body)
}

func scanResponse(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, "Attendance marked successfully!"
	case errors.Is(err, attendance.ErrBadRequest):
		return http.StatusBadRequest, "Missing required data."
	case errors.Is(err, attendance.ErrOutsideCampus):
		return http.StatusForbidden, "You are outside the campus. Attendance not marked."
	case errors.Is(err, attendance.ErrMalformedToken):
		return http.StatusBadRequest, "Invalid QR code format."
	case errors.Is(err, attendance.ErrIncompleteProfile):
		return http.StatusNotFound, "Complete your profile before marking attendance."
	case errors.Is(err, attendance.ErrAlreadyMarked):
		return http.StatusConflict, "Attendance already marked for today's session."
	default:
		return http.StatusInternalServerError, "A server error occurred."
	}
}
