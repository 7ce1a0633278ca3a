package attendance

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"

	"campusattend/internal/metrics"
	"campusattend/internal/queue"
)

// Tally is a Redis projection of accepted events, counted per subject and date.
// It is fed by the worker and may lag the ledger; the ledger stays authoritative.
type Tally struct {
	client *redis.Client
	prefix string
}

// NewTally creates a tally on client.
func NewTally(client *redis.Client) *Tally {
	return &Tally{client: client, prefix: "attendance:tally:"}
}

func (t *Tally) key(subject, issuer string) string {
	return t.prefix + issuer + "|" + subject
}

// Record counts evt under its calendar date.
func (t *Tally) Record(ctx context.Context, evt Event) error {
	return t.client.HIncrBy(ctx, t.key(evt.Subject, evt.Issuer), evt.CreatedAt.Format(DateLayout), 1).Err()
}

// Count returns the tally for one date, zero if none.
func (t *Tally) Count(ctx context.Context, subject, issuer, date string) (int, error) {
	v, err := t.client.HGet(ctx, t.key(subject, issuer), date).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

// Apply records a check-in message. Other message types are ignored.
func (t *Tally) Apply(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeCheckin {
		return nil
	}
	var evt Event
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		return err
	}
	if err := t.Record(ctx, evt); err != nil {
		return err
	}
	metrics.Tallied()
	return nil
}

// Run applies messages until msgs is closed.
func (t *Tally) Run(ctx context.Context, msgs <-chan queue.Message) {
	for msg := range msgs {
		if err := t.Apply(ctx, msg); err != nil {
			log.Printf("tally update failed: %v", err)
		}
	}
}
