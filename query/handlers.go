package query

import (
	"context"

	"github.com/goliatone/go-mailbox/core"
)

type MailboxReader interface {
	HeadOfLine(ctx context.Context, mailboxName string) (int64, error)
	Payload(ctx context.Context, payloadID int64) (core.Payload, error)
}

type HeadOfLineQuery struct {
	reader MailboxReader
}

func NewHeadOfLineQuery(reader MailboxReader) *HeadOfLineQuery {
	return &HeadOfLineQuery{reader: reader}
}

func (q *HeadOfLineQuery) Query(ctx context.Context, msg HeadOfLineMessage) (int64, error) {
	if q == nil || q.reader == nil {
		return 0, queryDependencyError("query: mailbox reader is required")
	}
	return q.reader.HeadOfLine(ctx, msg.MailboxName)
}

// GetPayloadQuery returns the stored payload. Header values are returned
// as stored; callers that log the result should redact them.
type GetPayloadQuery struct {
	reader MailboxReader
}

func NewGetPayloadQuery(reader MailboxReader) *GetPayloadQuery {
	return &GetPayloadQuery{reader: reader}
}

func (q *GetPayloadQuery) Query(ctx context.Context, msg GetPayloadMessage) (core.Payload, error) {
	if q == nil || q.reader == nil {
		return core.Payload{}, queryDependencyError("query: mailbox reader is required")
	}
	return q.reader.Payload(ctx, msg.PayloadID)
}

type ResolveRegionQuery struct {
	resolver core.DestinationResolver
}

func NewResolveRegionQuery(resolver core.DestinationResolver) *ResolveRegionQuery {
	return &ResolveRegionQuery{resolver: resolver}
}

func (q *ResolveRegionQuery) Query(ctx context.Context, msg ResolveRegionMessage) (core.Region, error) {
	if q == nil || q.resolver == nil {
		return core.Region{}, queryDependencyError("query: region resolver is required")
	}
	return q.resolver.ResolveRegion(ctx, msg.Name)
}
