package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	store             PayloadStore
	transport         Transport
	resolver          DestinationResolver
	alertSink         AlertSink
	executor          *Executor
	drainer           *Drainer
	dispatcher        DrainDispatcher
	scheduler         *Scheduler
	telemetry         telemetry
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	PayloadStore      PayloadStore
	Transport         Transport
	Resolver          DestinationResolver
	AlertSink         AlertSink
	Dispatcher        DrainDispatcher
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("mailbox", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("mailbox"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.alertSink == nil {
		builder.alertSink = LogAlertSink{Logger: logger}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, configError(err))
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, configError(err))
	}

	if builder.payloadStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			stores, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, fmt.Errorf("%w: build stores: %w", ErrNotConfigured, buildErr))
			}
			if stores != nil {
				builder.payloadStore = stores.PayloadStore()
			}
		} else if stores, ok := builder.repositoryFactory.(StoreProvider); ok {
			builder.payloadStore = stores.PayloadStore()
		}
	}
	if builder.payloadStore == nil {
		builder.payloadStore = NewMemoryPayloadStore().WithClock(builder.now)
	}
	if builder.resolver == nil {
		if regions, ok := builder.repositoryFactory.(RegionResolverProvider); ok {
			builder.resolver = regions.RegionResolver()
		}
	}
	if builder.resolver == nil {
		builder.resolver = StaticResolver{}
	}
	if builder.transport == nil && builder.transportFactory != nil {
		builder.transport = builder.transportFactory(finalConfig)
	}
	if builder.transport == nil {
		return nil, mapBuildError(builder.errorMapper, notConfigured("transport is required"))
	}

	executor, err := NewExecutor(builder.payloadStore, builder.transport, finalConfig,
		WithExecutorResolver(builder.resolver),
		WithExecutorAlertSink(builder.alertSink),
		WithExecutorTelemetry(logger, builder.metricsRecorder),
		WithExecutorClock(builder.now),
	)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	drainer, err := NewDrainer(builder.payloadStore, executor, finalConfig, logger, builder.metricsRecorder)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	dispatcher := builder.dispatcher
	if dispatcher == nil && builder.dispatcherFactory != nil {
		dispatcher = builder.dispatcherFactory(drainer)
	}
	if dispatcher == nil {
		dispatcher = NewInlineDispatcher(drainer, logger)
	}
	scheduler, err := NewScheduler(builder.payloadStore, dispatcher, finalConfig, logger, builder.metricsRecorder)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		store:             builder.payloadStore,
		transport:         builder.transport,
		resolver:          builder.resolver,
		alertSink:         builder.alertSink,
		executor:          executor,
		drainer:           drainer,
		dispatcher:        dispatcher,
		scheduler:         scheduler,
		telemetry:         newTelemetry(logger, builder.metricsRecorder),
		now:               builder.now,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		PayloadStore:      s.store,
		Transport:         s.transport,
		Resolver:          s.resolver,
		AlertSink:         s.alertSink,
		Dispatcher:        s.dispatcher,
	}
}

// Enqueue appends a payload to the tail of its mailbox. A zero ScheduleFor
// makes the payload due immediately.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (int64, error) {
	if s == nil || s.store == nil {
		return 0, notConfigured("service")
	}
	req.MailboxName = strings.TrimSpace(req.MailboxName)
	if err := req.Validate(); err != nil {
		return 0, s.mapError(err)
	}
	id, err := s.store.Enqueue(ctx, req)
	if err != nil {
		return 0, s.mapError(err)
	}
	s.telemetry.info(ctx, "mailbox.enqueue", map[string]any{
		"payload_id":         id,
		"mailbox_name":       req.MailboxName,
		"destination_region": req.Destination.RegionName,
	})
	return id, nil
}

// ScheduleTick runs one scheduler pass. A zero now uses the service clock.
func (s *Service) ScheduleTick(ctx context.Context, now time.Time) (TickStats, error) {
	if s == nil || s.scheduler == nil {
		return TickStats{}, notConfigured("service")
	}
	if now.IsZero() {
		now = s.now()
	}
	stats, err := s.scheduler.Tick(ctx, now)
	if err != nil {
		return stats, s.mapError(err)
	}
	return stats, nil
}

// Drain delivers the mailbox that owns payloadID, starting from that payload.
func (s *Service) Drain(ctx context.Context, payloadID int64) (DrainStats, error) {
	if s == nil || s.drainer == nil {
		return DrainStats{}, notConfigured("service")
	}
	if payloadID <= 0 {
		return DrainStats{PayloadID: payloadID}, s.mapError(invalidInput("payload id must be positive"))
	}
	stats, err := s.drainer.Drain(ctx, payloadID)
	if err != nil {
		return stats, s.mapError(err)
	}
	return stats, nil
}

// HeadOfLine reports the oldest pending payload id for a mailbox.
func (s *Service) HeadOfLine(ctx context.Context, mailboxName string) (int64, error) {
	if s == nil || s.store == nil {
		return 0, notConfigured("service")
	}
	id, err := s.store.HeadOfLine(ctx, strings.TrimSpace(mailboxName))
	if err != nil {
		return 0, s.mapError(err)
	}
	return id, nil
}

// Payload loads one pending payload.
func (s *Service) Payload(ctx context.Context, payloadID int64) (Payload, error) {
	if s == nil || s.store == nil {
		return Payload{}, notConfigured("service")
	}
	payload, err := s.store.Get(ctx, payloadID)
	if err != nil {
		return Payload{}, s.mapError(err)
	}
	return payload, nil
}

// ResolveRegion resolves a region name through the configured resolver.
func (s *Service) ResolveRegion(ctx context.Context, name string) (Region, error) {
	if s == nil || s.resolver == nil {
		return Region{}, notConfigured("service")
	}
	region, err := s.resolver.ResolveRegion(ctx, strings.TrimSpace(name))
	if err != nil {
		return Region{}, s.mapError(err)
	}
	return region, nil
}

// configError marks config load and merge failures as bad input unless they
// already carry a sentinel.
func configError(err error) error {
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotConfigured) {
		return err
	}
	return fmt.Errorf("%w: config: %w", ErrInvalidInput, err)
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
