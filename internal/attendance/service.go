package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"campusattend/internal/geofence"
	"campusattend/internal/metrics"
	"campusattend/internal/profile"
	"campusattend/internal/qrtoken"
	"campusattend/internal/queue"
)

// Policy is the immutable campus configuration the service decides against.
type Policy struct {
	Boundary geofence.Boundary
	// Location is the campus time zone; calendar days are counted in it.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// Profiles resolves the profile of the student making a scan.
type Profiles interface {
	Get(ctx context.Context, studentID string) (*profile.Profile, error)
}

// Service decides whether scans become attendance events.
type Service struct {
	ledger   Ledger
	profiles Profiles
	guard    Guard
	pub      queue.Publisher
	policy   Policy
}

// NewService creates a service. guard and pub may be nil; a nil guard falls back to a LocalGuard.
func NewService(ledger Ledger, profiles Profiles, guard Guard, pub queue.Publisher, policy Policy) *Service {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if policy.Now == nil {
		policy.Now = time.Now
	}
	if guard == nil {
		guard = NewLocalGuard()
	}
	return &Service{ledger: ledger, profiles: profiles, guard: guard, pub: pub, policy: policy}
}

// Policy returns the service's campus policy.
func (s *Service) Policy() Policy { return s.policy }

// Mark runs the admission pipeline for one scan and returns the stored event.
// Rejections wrap one of the Err* reasons in this package.
func (s *Service) Mark(ctx context.Context, scan Scan) (Event, error) {
	start := time.Now()
	evt, err := s.mark(ctx, scan)
	metrics.ObserveScan(Outcome(err), time.Since(start))
	if err != nil {
		log.Printf("scan by %s rejected: %v", scan.StudentID, err)
		return Event{}, err
	}
	log.Printf("attendance %s: %s marked for %s (%s)", evt.ID, evt.StudentID, evt.Subject, evt.Issuer)
	s.publish(ctx, evt)
	return evt, nil
}

func (s *Service) mark(ctx context.Context, scan Scan) (Event, error) {
	if scan.StudentID == "" || strings.TrimSpace(scan.Token) == "" || scan.Latitude == nil || scan.Longitude == nil {
		return Event{}, fmt.Errorf("%w: student, token, latitude and longitude required", ErrBadRequest)
	}
	at, err := geofence.NewCoordinate(*scan.Latitude, *scan.Longitude)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	if !geofence.Within(at, s.policy.Boundary) {
		return Event{}, fmt.Errorf("%w: %.0fm from center", ErrOutsideCampus, geofence.Distance(at, s.policy.Boundary.Center))
	}

	tok, err := qrtoken.Decode(scan.Token)
	if err == nil && (tok.Issuer != strings.TrimSpace(tok.Issuer) || tok.Subject != strings.TrimSpace(tok.Subject)) {
		err = qrtoken.ErrMalformed
	}
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	p, err := s.profiles.Get(ctx, scan.StudentID)
	if err != nil {
		return Event{}, fmt.Errorf("%w: profile lookup: %w", ErrStorage, err)
	}
	if p == nil || !p.Complete() {
		return Event{}, ErrIncompleteProfile
	}

	now := s.policy.Now().In(s.policy.Location)
	unlock, err := s.guard.Lock(ctx, dedupKey(tok, scan.StudentID, now))
	if err != nil {
		return Event{}, fmt.Errorf("%w: acquire guard: %w", ErrStorage, err)
	}
	defer unlock()

	existing, err := s.ledger.ListEvents(ctx, tok.Subject, tok.Issuer)
	if err != nil {
		return Event{}, fmt.Errorf("%w: list events: %w", ErrStorage, err)
	}
	for _, e := range existing {
		if e.StudentID == scan.StudentID && sameDay(e.CreatedAt, now, s.policy.Location) {
			return Event{}, ErrAlreadyMarked
		}
	}

	evt := Event{
		Subject:      tok.Subject,
		Issuer:       tok.Issuer,
		StudentID:    scan.StudentID,
		StudentName:  p.DisplayName,
		RollNumber:   p.RollNumber,
		Latitude:     at.Lat,
		Longitude:    at.Lon,
		InsideCampus: true,
		CreatedAt:    now,
	}
	id, err := s.ledger.Append(ctx, tok.Subject, tok.Issuer, evt)
	if err != nil {
		if errors.Is(err, ErrAlreadyMarked) {
			return Event{}, err
		}
		return Event{}, fmt.Errorf("%w: append: %w", ErrStorage, err)
	}
	evt.ID = id
	return evt, nil
}

// Events lists a subject's events in creation order.
func (s *Service) Events(ctx context.Context, subject, issuer string) ([]Event, error) {
	events, err := s.ledger.ListEvents(ctx, subject, issuer)
	if err != nil {
		return nil, err
	}
	SortByID(events)
	return events, nil
}

// DailyCounts reports per-day totals in the campus time zone.
func (s *Service) DailyCounts(ctx context.Context, subject, issuer string) ([]DailyCount, error) {
	return DailyCounts(ctx, s.ledger, subject, issuer, s.policy.Location)
}

// Today is the current campus-local date.
func (s *Service) Today() string {
	return s.policy.Now().In(s.policy.Location).Format(DateLayout)
}

func (s *Service) publish(ctx context.Context, evt Event) {
	if s.pub == nil {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		log.Printf("encode event %s: %v", evt.ID, err)
		return
	}
	// the scan is already accepted; do not let a cancelled request drop the message
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.pub.Publish(ctx, queue.Message{Type: queue.TypeCheckin, Body: body}); err != nil {
		log.Printf("queue publish for %s failed: %v", evt.ID, err)
	}
}

func dedupKey(tok qrtoken.Token, studentID string, now time.Time) string {
	return strings.Join([]string{tok.Subject, tok.Issuer, studentID, now.Format(DateLayout)}, "|")
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
