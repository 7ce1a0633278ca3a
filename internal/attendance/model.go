package attendance

import "time"

// DateLayout is the calendar-date format used for dedup keys and reports.
const DateLayout = "2006-01-02"

// Event represents one accepted scan.
type Event struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Issuer       string    `json:"issuer"`
	StudentID    string    `json:"email"`
	StudentName  string    `json:"name"`
	RollNumber   string    `json:"roll_number"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	InsideCampus bool      `json:"inside_campus"`
	CreatedAt    time.Time `json:"timestamp"`
}

// Scan is a single attendance attempt from an authenticated student.
// Nil coordinates mean the client did not send them.
type Scan struct {
	StudentID string
	Token     string
	Latitude  *float64
	Longitude *float64
}

// DailyCount is the number of events recorded on one calendar date.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
