package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-mailbox/core"
)

var (
	_ gocmd.Querier[HeadOfLineMessage, int64]          = (*HeadOfLineQuery)(nil)
	_ gocmd.Querier[GetPayloadMessage, core.Payload]   = (*GetPayloadQuery)(nil)
	_ gocmd.Querier[ResolveRegionMessage, core.Region] = (*ResolveRegionQuery)(nil)
)
