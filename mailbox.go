package mailbox

import (
	"github.com/goliatone/go-mailbox/core"
	"github.com/goliatone/go-mailbox/transport"
)

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Destination = core.Destination
type Payload = core.Payload
type EnqueueRequest = core.EnqueueRequest
type Region = core.Region
type DrainStats = core.DrainStats
type TickStats = core.TickStats
type PayloadStore = core.PayloadStore
type Transport = core.Transport
type DrainDispatcher = core.DrainDispatcher
type DestinationResolver = core.DestinationResolver
type AlertSink = core.AlertSink

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithPersistenceClient   = core.WithPersistenceClient
	WithRepositoryFactory   = core.WithRepositoryFactory
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithPayloadStore        = core.WithPayloadStore
	WithTransport           = core.WithTransport
	WithTransportFactory    = core.WithTransportFactory
	WithDestinationResolver = core.WithDestinationResolver
	WithAlertSink           = core.WithAlertSink
	WithDispatcher          = core.WithDispatcher
	WithDispatcherFactory   = core.WithDispatcherFactory
	WithClock               = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}

// New builds a service that delivers over HTTP unless a transport option
// overrides it. Private destinations are refused unless the resolved config
// sets allow_private_addresses.
func New(cfg Config, opts ...Option) (*Service, error) {
	all := make([]Option, 0, len(opts)+1)
	all = append(all, core.WithTransportFactory(transport.ForConfig))
	all = append(all, opts...)
	return core.NewService(cfg, all...)
}
