package mailbox

import (
	"fmt"
	"reflect"

	mailboxcommand "github.com/goliatone/go-mailbox/command"
	"github.com/goliatone/go-mailbox/core"
	mailboxquery "github.com/goliatone/go-mailbox/query"
)

type CommandQueryService interface {
	mailboxcommand.MailboxService
	mailboxquery.MailboxReader
	core.DestinationResolver
}

type Commands struct {
	EnqueuePayload *mailboxcommand.EnqueuePayloadCommand
	ScheduleTick   *mailboxcommand.ScheduleTickCommand
	DrainMailbox   *mailboxcommand.DrainMailboxCommand
	UpsertRegion   *mailboxcommand.UpsertRegionCommand
}

type Queries struct {
	HeadOfLine    *mailboxquery.HeadOfLineQuery
	GetPayload    *mailboxquery.GetPayloadQuery
	ResolveRegion *mailboxquery.ResolveRegionQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	regionWriter mailboxcommand.RegionWriter
}

func WithRegionWriter(writer mailboxcommand.RegionWriter) FacadeOption {
	return func(options *facadeOptions) {
		options.regionWriter = writer
	}
}

// NewFacade wires commands and queries around service. The region upsert
// command is only built when a region writer is given or can be found on
// the service's repository factory.
func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("mailbox: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	writer := cfg.regionWriter
	if writer == nil {
		writer = resolveRegionWriter(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		EnqueuePayload: mailboxcommand.NewEnqueuePayloadCommand(service),
		ScheduleTick:   mailboxcommand.NewScheduleTickCommand(service),
		DrainMailbox:   mailboxcommand.NewDrainMailboxCommand(service),
	}
	if writer != nil {
		facade.commands.UpsertRegion = mailboxcommand.NewUpsertRegionCommand(writer)
	}
	facade.queries = Queries{
		HeadOfLine:    mailboxquery.NewHeadOfLineQuery(service),
		GetPayload:    mailboxquery.NewGetPayloadQuery(service),
		ResolveRegion: mailboxquery.NewResolveRegionQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveRegionWriter looks for a Regions() or RegionStore() accessor on the
// repository factory without importing the sql store package. Regions wins
// so upserts invalidate a cached directory.
func resolveRegionWriter(service CommandQueryService) mailboxcommand.RegionWriter {
	if service == nil {
		return nil
	}
	if writer, ok := service.(mailboxcommand.RegionWriter); ok {
		return writer
	}
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	deps := provider.Dependencies()
	if deps.RepositoryFactory == nil {
		return nil
	}

	factoryValue := reflect.ValueOf(deps.RepositoryFactory)
	if !factoryValue.IsValid() {
		return nil
	}
	if factoryValue.Kind() == reflect.Ptr && factoryValue.IsNil() {
		return nil
	}
	for _, accessor := range []string{"Regions", "RegionStore"} {
		if writer := regionWriterFrom(factoryValue.MethodByName(accessor)); writer != nil {
			return writer
		}
	}
	return nil
}

func regionWriterFrom(method reflect.Value) mailboxcommand.RegionWriter {
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil
	}
	results, ok := safeReflectCall(method)
	if !ok || len(results) != 1 {
		return nil
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return nil
	}
	if (candidate.Kind() == reflect.Ptr || candidate.Kind() == reflect.Interface) && candidate.IsNil() {
		return nil
	}
	writer, ok := candidate.Interface().(mailboxcommand.RegionWriter)
	if !ok {
		return nil
	}
	return writer
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
