package command

import (
	"strings"
	"time"

	"github.com/goliatone/go-mailbox/core"
)

const (
	TypeEnqueuePayload = "mailbox.command.payload.enqueue"
	TypeScheduleTick   = "mailbox.command.schedule.tick"
	TypeDrainMailbox   = "mailbox.command.mailbox.drain"
	TypeUpsertRegion   = "mailbox.command.region.upsert"
)

type EnqueuePayloadMessage struct {
	Request core.EnqueueRequest
}

func (EnqueuePayloadMessage) Type() string { return TypeEnqueuePayload }

func (m EnqueuePayloadMessage) Validate() error {
	if strings.TrimSpace(m.Request.MailboxName) == "" {
		return commandValidationError("mailbox_name", "mailbox name is required")
	}
	if strings.TrimSpace(m.Request.Destination.RegionName) == "" {
		return commandValidationError("destination.region_name", "destination region is required")
	}
	if strings.TrimSpace(m.Request.Destination.Method) == "" {
		return commandValidationError("destination.method", "destination method is required")
	}
	if strings.TrimSpace(m.Request.Destination.Path) == "" {
		return commandValidationError("destination.path", "destination path is required")
	}
	return nil
}

// EnqueueResult is stored in the go-command result collector.
type EnqueueResult struct {
	PayloadID   int64
	MailboxName string
}

// ScheduleTickMessage triggers one scheduler pass. A zero Now uses the
// service clock.
type ScheduleTickMessage struct {
	Now time.Time
}

func (ScheduleTickMessage) Type() string { return TypeScheduleTick }

type DrainMailboxMessage struct {
	PayloadID int64
}

func (DrainMailboxMessage) Type() string { return TypeDrainMailbox }

func (m DrainMailboxMessage) Validate() error {
	if m.PayloadID <= 0 {
		return commandValidationError("payload_id", "payload id must be positive")
	}
	return nil
}

type UpsertRegionMessage struct {
	Region core.Region
}

func (UpsertRegionMessage) Type() string { return TypeUpsertRegion }

func (m UpsertRegionMessage) Validate() error {
	if strings.TrimSpace(m.Region.Name) == "" {
		return commandValidationError("name", "region name is required")
	}
	if strings.TrimSpace(m.Region.Address) == "" {
		return commandValidationError("address", "region address is required")
	}
	return nil
}
