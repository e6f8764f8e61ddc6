// Package sentlog records every message handed to the send operation so the
// history can be listed and updated with delivery events later.
package sentlog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Status is the delivery state of a sent message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusBounced   Status = "bounced"
	StatusFailed    Status = "failed"
)

var (
	ErrNotFound      = errors.New("sent record not found")
	ErrInvalidStatus = errors.New("invalid status")
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusDelivered, StatusBounced, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Record is one send call: one recipient, one subject.
type Record struct {
	ID         string    `json:"id" bson:"_id"`
	Recipient  string    `json:"recipient" bson:"recipient"`
	Subject    string    `json:"subject" bson:"subject"`
	SentAt     time.Time `json:"sentAt" bson:"sent_at"`
	Status     Status    `json:"status" bson:"status"`
	Opened     bool      `json:"opened" bson:"opened"`
	Complained bool      `json:"complained" bson:"complained"`
	Error      string    `json:"error,omitempty" bson:"error,omitempty"`
}

// Store persists sent records.
type Store interface {
	Insert(ctx context.Context, r Record) error
	// List returns the newest records first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Record, error)
	UpdateStatus(ctx context.Context, id string, status Status, errMsg string) error
}

// MemoryStore keeps records in process.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := slices.Clone(s.records)
	s.mu.Unlock()

	// stable, so records sharing a timestamp keep newest-inserted first
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b Record) int { return b.SentAt.Compare(a.SentAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status Status, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Status = status
			s.records[i].Error = errMsg
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
