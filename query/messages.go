package query

import "strings"

const (
	TypeHeadOfLine    = "mailbox.query.mailbox.head"
	TypeGetPayload    = "mailbox.query.payload.get"
	TypeResolveRegion = "mailbox.query.region.resolve"
)

type HeadOfLineMessage struct {
	MailboxName string
}

func (HeadOfLineMessage) Type() string { return TypeHeadOfLine }

func (m HeadOfLineMessage) Validate() error {
	if strings.TrimSpace(m.MailboxName) == "" {
		return queryValidationError("mailbox_name", "mailbox name is required")
	}
	return nil
}

type GetPayloadMessage struct {
	PayloadID int64
}

func (GetPayloadMessage) Type() string { return TypeGetPayload }

func (m GetPayloadMessage) Validate() error {
	if m.PayloadID <= 0 {
		return queryValidationError("payload_id", "payload id must be positive")
	}
	return nil
}

type ResolveRegionMessage struct {
	Name string
}

func (ResolveRegionMessage) Type() string { return TypeResolveRegion }

func (m ResolveRegionMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return queryValidationError("name", "region name is required")
	}
	return nil
}
