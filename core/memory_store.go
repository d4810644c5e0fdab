package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryPayloadStore is an in-process PayloadStore. Every operation is atomic
// under one mutex, which stands in for the conditional updates of a
// transactional store.
type MemoryPayloadStore struct {
	mu       sync.Mutex
	nextID   int64
	payloads map[int64]Payload
	now      func() time.Time
}

func NewMemoryPayloadStore() *MemoryPayloadStore {
	return &MemoryPayloadStore{
		payloads: map[int64]Payload{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock replaces the clock used to stamp created_at and default schedule_for.
func (s *MemoryPayloadStore) WithClock(now func() time.Time) *MemoryPayloadStore {
	if s != nil && now != nil {
		s.mu.Lock()
		s.now = now
		s.mu.Unlock()
	}
	return s
}

func (s *MemoryPayloadStore) Enqueue(_ context.Context, req EnqueueRequest) (int64, error) {
	if s == nil {
		return 0, notConfigured("memory payload store")
	}
	if err := req.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	scheduleFor := req.ScheduleFor.UTC()
	if req.ScheduleFor.IsZero() {
		scheduleFor = now
	}
	s.nextID++
	payload := Payload{
		ID:          s.nextID,
		MailboxName: strings.TrimSpace(req.MailboxName),
		Destination: cloneDestination(req.Destination),
		ScheduleFor: scheduleFor,
		CreatedAt:   now,
	}
	s.payloads[payload.ID] = payload
	return payload.ID, nil
}

func (s *MemoryPayloadStore) HeadOfLine(_ context.Context, mailboxName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var head int64
	for id, payload := range s.payloads {
		if payload.MailboxName != mailboxName {
			continue
		}
		if head == 0 || id < head {
			head = id
		}
	}
	if head == 0 {
		return 0, fmt.Errorf("%w: %q", ErrMailboxEmpty, mailboxName)
	}
	return head, nil
}

func (s *MemoryPayloadStore) DueMailboxes(_ context.Context, now time.Time, limit int) ([]MailboxHead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	heads := map[string]Payload{}
	for _, payload := range s.payloads {
		current, ok := heads[payload.MailboxName]
		if !ok || payload.ID < current.ID {
			heads[payload.MailboxName] = payload
		}
	}
	due := make([]MailboxHead, 0, len(heads))
	for _, head := range heads {
		if head.ScheduleFor.After(now) {
			continue
		}
		due = append(due, MailboxHead{MailboxName: head.MailboxName, HeadID: head.ID})
	}
	sort.Slice(due, func(i, j int) bool { return due[i].HeadID < due[j].HeadID })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryPayloadStore) RangeQuery(_ context.Context, mailboxName string, fromID int64, limit int) ([]Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Payload, 0)
	for _, payload := range s.payloads {
		if payload.MailboxName == mailboxName && payload.ID >= fromID {
			out = append(out, clonePayload(payload))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryPayloadStore) Reschedule(_ context.Context, ids []int64, scheduleFor time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, id := range ids {
		payload, ok := s.payloads[id]
		if !ok || !payload.ScheduleFor.Before(scheduleFor) {
			continue
		}
		payload.ScheduleFor = scheduleFor.UTC()
		s.payloads[id] = payload
		updated++
	}
	return updated, nil
}

func (s *MemoryPayloadStore) Get(_ context.Context, id int64) (Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.payloads[id]
	if !ok {
		return Payload{}, fmt.Errorf("%w: id %d", ErrPayloadNotFound, id)
	}
	return clonePayload(payload), nil
}

func (s *MemoryPayloadStore) UpdateAttemptState(_ context.Context, id int64, attempts int, scheduleFor time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.payloads[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrPayloadNotFound, id)
	}
	if attempts > payload.Attempts {
		payload.Attempts = attempts
	}
	if scheduleFor.After(payload.ScheduleFor) {
		payload.ScheduleFor = scheduleFor.UTC()
	}
	s.payloads[id] = payload
	return nil
}

func (s *MemoryPayloadStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, id)
	return nil
}

// Len reports the number of pending payloads.
func (s *MemoryPayloadStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func clonePayload(payload Payload) Payload {
	payload.Destination = cloneDestination(payload.Destination)
	return payload
}

func cloneDestination(destination Destination) Destination {
	destination.Headers = cloneStringMap(destination.Headers)
	destination.Body = append([]byte(nil), destination.Body...)
	return destination
}

var _ PayloadStore = (*MemoryPayloadStore)(nil)
