package command

import (
	"context"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-mailbox/core"
)

type MailboxService interface {
	Enqueue(ctx context.Context, req core.EnqueueRequest) (int64, error)
	ScheduleTick(ctx context.Context, now time.Time) (core.TickStats, error)
	Drain(ctx context.Context, payloadID int64) (core.DrainStats, error)
}

type RegionWriter interface {
	Upsert(ctx context.Context, region core.Region) (core.Region, error)
}

type EnqueuePayloadCommand struct {
	service MailboxService
}

func NewEnqueuePayloadCommand(service MailboxService) *EnqueuePayloadCommand {
	return &EnqueuePayloadCommand{service: service}
}

func (c *EnqueuePayloadCommand) Execute(ctx context.Context, msg EnqueuePayloadMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: enqueue service is required")
	}
	id, err := c.service.Enqueue(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, EnqueueResult{PayloadID: id, MailboxName: msg.Request.MailboxName})
	return nil
}

type ScheduleTickCommand struct {
	service MailboxService
}

func NewScheduleTickCommand(service MailboxService) *ScheduleTickCommand {
	return &ScheduleTickCommand{service: service}
}

func (c *ScheduleTickCommand) Execute(ctx context.Context, msg ScheduleTickMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: schedule service is required")
	}
	out, err := c.service.ScheduleTick(ctx, msg.Now)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DrainMailboxCommand struct {
	service MailboxService
}

func NewDrainMailboxCommand(service MailboxService) *DrainMailboxCommand {
	return &DrainMailboxCommand{service: service}
}

func (c *DrainMailboxCommand) Execute(ctx context.Context, msg DrainMailboxMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: drain service is required")
	}
	out, err := c.service.Drain(ctx, msg.PayloadID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpsertRegionCommand struct {
	regions RegionWriter
}

func NewUpsertRegionCommand(regions RegionWriter) *UpsertRegionCommand {
	return &UpsertRegionCommand{regions: regions}
}

func (c *UpsertRegionCommand) Execute(ctx context.Context, msg UpsertRegionMessage) error {
	if c == nil || c.regions == nil {
		return commandDependencyError("command: region writer is required")
	}
	out, err := c.regions.Upsert(ctx, msg.Region)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
