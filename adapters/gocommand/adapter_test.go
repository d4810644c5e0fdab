package gocommand

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	mailboxcommand "github.com/goliatone/go-mailbox/command"
	"github.com/goliatone/go-mailbox/core"
	mailboxquery "github.com/goliatone/go-mailbox/query"
)

type okMessage struct{}

func (okMessage) Type() string { return "mailbox.test.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "mailbox.test.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "mailbox.test.test" }

type queueMessage struct{}

func (queueMessage) Type() string { return "mailbox.test.queue" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	if _, err := RegisterAndSubscribe(adapter, cmd); err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestQueueResolverHookWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	cmd := command.CommandFunc[queueMessage](func(context.Context, queueMessage) error { return nil })

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get("mailbox.test.queue"); !ok {
		t.Fatalf("expected command to be mirrored into queue registry")
	}
}

type okTransport struct {
	paths []string
}

func (t *okTransport) Send(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	t.paths = append(t.paths, req.Path)
	return core.TransportResponse{StatusCode: 204}, nil
}

type stubRegionWriter struct {
	regions []core.Region
}

func (w *stubRegionWriter) Upsert(_ context.Context, region core.Region) (core.Region, error) {
	w.regions = append(w.regions, region)
	return region, nil
}

func TestRegisterMailbox_DispatchesThroughService(t *testing.T) {
	transport := &okTransport{}
	service, err := core.NewService(core.DefaultConfig(), core.WithTransport(transport))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	regions := &stubRegionWriter{}
	adapter := NewRegistryAdapter(command.NewRegistry())
	subscriptions, err := RegisterMailbox(adapter, NewMailboxHandlers(service, regions))
	if err != nil {
		t.Fatalf("register mailbox: %v", err)
	}
	defer Unsubscribe(subscriptions)
	if len(subscriptions) != 7 {
		t.Fatalf("expected 7 subscriptions, got %d", len(subscriptions))
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	ctx := context.Background()
	err = Dispatch(ctx, mailboxcommand.EnqueuePayloadMessage{Request: core.EnqueueRequest{
		MailboxName: "org:dispatch",
		Destination: core.Destination{RegionName: "https://us.example.test", Method: "POST", Path: "/hooks"},
	}})
	if err != nil {
		t.Fatalf("dispatch enqueue: %v", err)
	}
	head, err := Query[mailboxquery.HeadOfLineMessage, int64](ctx, mailboxquery.HeadOfLineMessage{MailboxName: "org:dispatch"})
	if err != nil {
		t.Fatalf("head of line query: %v", err)
	}
	if head <= 0 {
		t.Fatalf("expected positive head id, got %d", head)
	}
	payload, err := Query[mailboxquery.GetPayloadMessage, core.Payload](ctx, mailboxquery.GetPayloadMessage{PayloadID: head})
	if err != nil {
		t.Fatalf("get payload query: %v", err)
	}
	if payload.MailboxName != "org:dispatch" {
		t.Fatalf("expected org:dispatch payload, got %q", payload.MailboxName)
	}

	if err := Dispatch(ctx, mailboxcommand.DrainMailboxMessage{PayloadID: head}); err != nil {
		t.Fatalf("dispatch drain: %v", err)
	}
	if len(transport.paths) != 1 || transport.paths[0] != "/hooks" {
		t.Fatalf("expected one delivery to /hooks, got %v", transport.paths)
	}

	if err := Dispatch(ctx, mailboxcommand.UpsertRegionMessage{Region: core.Region{Name: "us", Address: "https://us.example.test"}}); err != nil {
		t.Fatalf("dispatch upsert: %v", err)
	}
	if len(regions.regions) != 1 || regions.regions[0].Name != "us" {
		t.Fatalf("expected region upsert, got %+v", regions.regions)
	}
}

func TestNewMailboxHandlers_SkipsRegionWriterWhenNil(t *testing.T) {
	handlers := NewMailboxHandlers(nil, nil)
	if handlers.UpsertRegion != nil {
		t.Fatalf("expected no upsert handler without a region writer")
	}
	if handlers.Enqueue == nil || handlers.HeadOfLine == nil {
		t.Fatalf("expected service handlers to be built")
	}
}

func TestRegisterMailbox_RequiresRegistry(t *testing.T) {
	if _, err := RegisterMailbox(nil, MailboxHandlers{}); err == nil {
		t.Fatalf("expected nil adapter to fail")
	}
}
