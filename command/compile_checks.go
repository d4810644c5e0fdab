package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[EnqueuePayloadMessage] = (*EnqueuePayloadCommand)(nil)
	_ gocmd.Commander[ScheduleTickMessage]   = (*ScheduleTickCommand)(nil)
	_ gocmd.Commander[DrainMailboxMessage]   = (*DrainMailboxCommand)(nil)
	_ gocmd.Commander[UpsertRegionMessage]   = (*UpsertRegionCommand)(nil)
)
