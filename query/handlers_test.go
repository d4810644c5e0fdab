package query

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mailbox/core"
)

func TestHeadOfLineQuery_QueryDelegates(t *testing.T) {
	called := false
	reader := stubMailboxReader{
		headFn: func(_ context.Context, mailboxName string) (int64, error) {
			called = true
			if mailboxName != "org:1" {
				t.Fatalf("unexpected mailbox %q", mailboxName)
			}
			return 12, nil
		},
	}
	head, err := NewHeadOfLineQuery(reader).Query(context.Background(), HeadOfLineMessage{MailboxName: "org:1"})
	if err != nil {
		t.Fatalf("query head of line: %v", err)
	}
	if !called {
		t.Fatalf("expected mailbox reader invocation")
	}
	if head != 12 {
		t.Fatalf("expected head 12, got %d", head)
	}
}

func TestGetPayloadQuery_PropagatesNotFound(t *testing.T) {
	reader := stubMailboxReader{
		payloadFn: func(_ context.Context, payloadID int64) (core.Payload, error) {
			return core.Payload{}, core.ErrPayloadNotFound
		},
	}
	_, err := NewGetPayloadQuery(reader).Query(context.Background(), GetPayloadMessage{PayloadID: 4})
	if !errors.Is(err, core.ErrPayloadNotFound) {
		t.Fatalf("expected ErrPayloadNotFound, got %v", err)
	}
}

func TestResolveRegionQuery_UsesResolver(t *testing.T) {
	region, err := NewResolveRegionQuery(core.StaticResolver{}).Query(
		context.Background(),
		ResolveRegionMessage{Name: "https://eu.example.test"},
	)
	if err != nil {
		t.Fatalf("resolve region: %v", err)
	}
	if region.Address != "https://eu.example.test" {
		t.Fatalf("unexpected region %#v", region)
	}
}

func TestQueries_NilDependenciesReturnRichErrors(t *testing.T) {
	var head *HeadOfLineQuery
	_, err := head.Query(context.Background(), HeadOfLineMessage{MailboxName: "org:1"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal || rich.TextCode != core.MailboxErrorInternal {
		t.Fatalf("unexpected error envelope %#v", rich)
	}
	if _, err := NewResolveRegionQuery(nil).Query(context.Background(), ResolveRegionMessage{Name: "us"}); err == nil {
		t.Fatalf("expected missing resolver to fail")
	}
}

func TestMessages_Validate(t *testing.T) {
	for name, msg := range map[string]interface{ Validate() error }{
		"head":    HeadOfLineMessage{},
		"payload": GetPayloadMessage{PayloadID: -1},
		"region":  ResolveRegionMessage{Name: " "},
	} {
		err := msg.Validate()
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("%s: expected go-errors validation envelope, got %v", name, err)
		}
		if rich.TextCode != core.MailboxErrorBadInput {
			t.Fatalf("%s: expected %q text code, got %q", name, core.MailboxErrorBadInput, rich.TextCode)
		}
	}
}

type stubMailboxReader struct {
	headFn    func(ctx context.Context, mailboxName string) (int64, error)
	payloadFn func(ctx context.Context, payloadID int64) (core.Payload, error)
}

func (s stubMailboxReader) HeadOfLine(ctx context.Context, mailboxName string) (int64, error) {
	if s.headFn == nil {
		return 0, core.ErrMailboxEmpty
	}
	return s.headFn(ctx, mailboxName)
}

func (s stubMailboxReader) Payload(ctx context.Context, payloadID int64) (core.Payload, error) {
	if s.payloadFn == nil {
		return core.Payload{}, core.ErrPayloadNotFound
	}
	return s.payloadFn(ctx, payloadID)
}
