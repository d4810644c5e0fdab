package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	mailboxcommand "github.com/goliatone/go-mailbox/command"
	"github.com/goliatone/go-mailbox/core"
	mailboxquery "github.com/goliatone/go-mailbox/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeCommandFunc[T any](handler command.CommandFunc[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(handler, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func SubscribeQueryFunc[T any, R any](qry command.QueryFunc[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// MailboxHandlers groups the mailbox commands and queries exposed on the
// go-command dispatcher.
type MailboxHandlers struct {
	Enqueue       *mailboxcommand.EnqueuePayloadCommand
	ScheduleTick  *mailboxcommand.ScheduleTickCommand
	DrainMailbox  *mailboxcommand.DrainMailboxCommand
	UpsertRegion  *mailboxcommand.UpsertRegionCommand
	HeadOfLine    *mailboxquery.HeadOfLineQuery
	GetPayload    *mailboxquery.GetPayloadQuery
	ResolveRegion *mailboxquery.ResolveRegionQuery
}

// NewMailboxHandlers builds every handler around one service. A nil regions
// writer leaves the region upsert command unregistered.
func NewMailboxHandlers(service *core.Service, regions mailboxcommand.RegionWriter) MailboxHandlers {
	handlers := MailboxHandlers{
		Enqueue:       mailboxcommand.NewEnqueuePayloadCommand(service),
		ScheduleTick:  mailboxcommand.NewScheduleTickCommand(service),
		DrainMailbox:  mailboxcommand.NewDrainMailboxCommand(service),
		HeadOfLine:    mailboxquery.NewHeadOfLineQuery(service),
		GetPayload:    mailboxquery.NewGetPayloadQuery(service),
		ResolveRegion: mailboxquery.NewResolveRegionQuery(service),
	}
	if regions != nil {
		handlers.UpsertRegion = mailboxcommand.NewUpsertRegionCommand(regions)
	}
	return handlers
}

// RegisterMailbox registers and subscribes every non-nil handler. On failure
// the subscriptions made so far are released.
func RegisterMailbox(adapter *RegistryAdapter, handlers MailboxHandlers) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	subscriptions := make([]commanddispatcher.Subscription, 0, 7)
	register := func(subscribe func() (commanddispatcher.Subscription, error)) error {
		subscription, err := subscribe()
		if err != nil {
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}

	steps := []func() (commanddispatcher.Subscription, error){}
	if handlers.Enqueue != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe[mailboxcommand.EnqueuePayloadMessage](adapter, handlers.Enqueue)
		})
	}
	if handlers.ScheduleTick != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe[mailboxcommand.ScheduleTickMessage](adapter, handlers.ScheduleTick)
		})
	}
	if handlers.DrainMailbox != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe[mailboxcommand.DrainMailboxMessage](adapter, handlers.DrainMailbox)
		})
	}
	if handlers.UpsertRegion != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe[mailboxcommand.UpsertRegionMessage](adapter, handlers.UpsertRegion)
		})
	}
	if handlers.HeadOfLine != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery[mailboxquery.HeadOfLineMessage, int64](adapter, handlers.HeadOfLine)
		})
	}
	if handlers.GetPayload != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery[mailboxquery.GetPayloadMessage, core.Payload](adapter, handlers.GetPayload)
		})
	}
	if handlers.ResolveRegion != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery[mailboxquery.ResolveRegionMessage, core.Region](adapter, handlers.ResolveRegion)
		})
	}
	for _, step := range steps {
		if err := register(step); err != nil {
			Unsubscribe(subscriptions)
			return nil, err
		}
	}
	return subscriptions, nil
}

func Unsubscribe(subscriptions []commanddispatcher.Subscription) {
	for _, subscription := range subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}
