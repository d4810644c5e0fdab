package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-mailbox/core"
	"github.com/uptrace/bun"
)

// PayloadStore persists mailbox payloads in mailbox_payloads. Ids come from
// the table sequence, so per-mailbox order is insertion order.
type PayloadStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewPayloadStore(db *bun.DB) (*PayloadStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &PayloadStore{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// WithClock replaces the clock used for created_at and default schedule_for.
func (s *PayloadStore) WithClock(now func() time.Time) *PayloadStore {
	if s != nil && now != nil {
		s.now = now
	}
	return s
}

func (s *PayloadStore) Enqueue(ctx context.Context, req core.EnqueueRequest) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: payload store is not configured")
	}
	if err := req.Validate(); err != nil {
		return 0, err
	}
	record := newPayloadRecord(req, s.now().UTC())
	if _, err := s.db.NewInsert().Model(record).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("sqlstore: enqueue payload: %w", err)
	}
	if record.ID == 0 {
		return 0, fmt.Errorf("sqlstore: enqueue payload returned no id")
	}
	return record.ID, nil
}

func (s *PayloadStore) HeadOfLine(ctx context.Context, mailboxName string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: payload store is not configured")
	}
	mailboxName = strings.TrimSpace(mailboxName)
	var id int64
	err := s.db.NewSelect().
		Model((*payloadRecord)(nil)).
		Column("id").
		Where("mailbox_name = ?", mailboxName).
		OrderExpr("id ASC").
		Limit(1).
		Scan(ctx, &id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: %q", core.ErrMailboxEmpty, mailboxName)
		}
		return 0, err
	}
	return id, nil
}

// DueMailboxes only considers each mailbox's lowest id; a backed-off head
// keeps the whole mailbox out of the result.
func (s *PayloadStore) DueMailboxes(ctx context.Context, now time.Time, limit int) ([]core.MailboxHead, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: payload store is not configured")
	}
	if limit <= 0 {
		limit = core.DefaultConfig().BatchSize
	}
	query := `
SELECT p.mailbox_name AS mailbox_name, p.id AS head_id
FROM mailbox_payloads AS p
JOIN (
	SELECT mailbox_name, MIN(id) AS head_id
	FROM mailbox_payloads
	GROUP BY mailbox_name
) AS h ON h.head_id = p.id
WHERE p.schedule_for <= ?
ORDER BY p.id ASC
LIMIT ?
`
	var rows []mailboxHeadRow
	if err := s.db.NewRaw(query, now.UTC(), limit).Scan(ctx, &rows); err != nil {
		return nil, err
	}
	heads := make([]core.MailboxHead, 0, len(rows))
	for _, row := range rows {
		heads = append(heads, core.MailboxHead{MailboxName: row.MailboxName, HeadID: row.HeadID})
	}
	return heads, nil
}

func (s *PayloadStore) RangeQuery(ctx context.Context, mailboxName string, fromID int64, limit int) ([]core.Payload, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: payload store is not configured")
	}
	if limit <= 0 {
		limit = core.DefaultConfig().MaxMailboxDrain
	}
	var records []payloadRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("mailbox_name = ?", strings.TrimSpace(mailboxName)).
		Where("id >= ?", fromID).
		OrderExpr("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	payloads := make([]core.Payload, 0, len(records))
	for i := range records {
		payloads = append(payloads, records[i].toDomain())
	}
	return payloads, nil
}

// Reschedule is a conditional update: rows already scheduled at or past
// scheduleFor are left alone and not counted.
func (s *PayloadStore) Reschedule(ctx context.Context, ids []int64, scheduleFor time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: payload store is not configured")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	scheduleFor = scheduleFor.UTC()
	res, err := s.db.NewUpdate().
		Model((*payloadRecord)(nil)).
		Set("schedule_for = ?", scheduleFor).
		Where("id IN (?)", bun.In(ids)).
		Where("schedule_for < ?", scheduleFor).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *PayloadStore) Get(ctx context.Context, id int64) (core.Payload, error) {
	if s == nil || s.db == nil {
		return core.Payload{}, fmt.Errorf("sqlstore: payload store is not configured")
	}
	record := &payloadRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Payload{}, fmt.Errorf("%w: id %d", core.ErrPayloadNotFound, id)
		}
		return core.Payload{}, err
	}
	return record.toDomain(), nil
}

// UpdateAttemptState never lowers attempts or schedule_for, so a slower
// concurrent writer cannot undo a newer one.
func (s *PayloadStore) UpdateAttemptState(ctx context.Context, id int64, attempts int, scheduleFor time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: payload store is not configured")
	}
	scheduleFor = scheduleFor.UTC()
	res, err := s.db.NewUpdate().
		Model((*payloadRecord)(nil)).
		Set("attempts = CASE WHEN attempts < ? THEN ? ELSE attempts END", attempts, attempts).
		Set("schedule_for = CASE WHEN schedule_for < ? THEN ? ELSE schedule_for END", scheduleFor, scheduleFor).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", core.ErrPayloadNotFound, id)
	}
	return nil
}

func (s *PayloadStore) Delete(ctx context.Context, id int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: payload store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*payloadRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// Count reports pending payloads, optionally for a single mailbox.
func (s *PayloadStore) Count(ctx context.Context, mailboxName string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: payload store is not configured")
	}
	query := s.db.NewSelect().Model((*payloadRecord)(nil))
	if trimmed := strings.TrimSpace(mailboxName); trimmed != "" {
		query = query.Where("mailbox_name = ?", trimmed)
	}
	return query.Count(ctx)
}
