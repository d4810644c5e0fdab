package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
	"github.com/joho/godotenv"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type DispatcherFactory func(runner DrainRunner) DrainDispatcher

// TransportFactory builds the transport from the resolved config.
type TransportFactory func(cfg Config) Transport

type serviceBuilder struct {
	runtimeConfig     Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	payloadStore      PayloadStore
	transport         Transport
	transportFactory  TransportFactory
	resolver          DestinationResolver
	alertSink         AlertSink
	dispatcher        DrainDispatcher
	dispatcherFactory DispatcherFactory
	now               func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithPayloadStore(store PayloadStore) Option {
	return func(b *serviceBuilder) {
		b.payloadStore = store
	}
}

func WithTransport(transport Transport) Option {
	return func(b *serviceBuilder) {
		b.transport = transport
	}
}

// WithTransportFactory is used when no transport is set, after the config
// layers are merged.
func WithTransportFactory(factory TransportFactory) Option {
	return func(b *serviceBuilder) {
		b.transportFactory = factory
	}
}

func WithDestinationResolver(resolver DestinationResolver) Option {
	return func(b *serviceBuilder) {
		b.resolver = resolver
	}
}

func WithAlertSink(sink AlertSink) Option {
	return func(b *serviceBuilder) {
		b.alertSink = sink
	}
}

// WithDispatcher routes drains through a prebuilt dispatcher, such as a job
// queue whose workers call back into Service.Drain.
func WithDispatcher(dispatcher DrainDispatcher) Option {
	return func(b *serviceBuilder) {
		b.dispatcher = dispatcher
	}
}

// WithDispatcherFactory builds the dispatcher around the service's drainer.
func WithDispatcherFactory(factory DispatcherFactory) Option {
	return func(b *serviceBuilder) {
		b.dispatcherFactory = factory
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.now = now
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("mailbox", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return mailboxErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticConfigLoader serves a fixed raw config map.
func NewStaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

const dotenvPrefix = "MAILBOX_"

// DotenvConfigLoader reads MAILBOX_* keys from env files, e.g.
// MAILBOX_MAX_MAILBOX_DRAIN=50 or MAILBOX_BATCH_SCHEDULE_OFFSET=5m.
type DotenvConfigLoader struct {
	Files []string
}

func NewDotenvConfigLoader(files ...string) *DotenvConfigLoader {
	return &DotenvConfigLoader{Files: append([]string(nil), files...)}
}

func (l *DotenvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if l == nil {
		return map[string]any{}, nil
	}
	values, err := godotenv.Read(l.Files...)
	if err != nil {
		return nil, fmt.Errorf("%w: read env files: %w", ErrNotConfigured, err)
	}
	return parseEnvValues(values)
}

func parseEnvValues(values map[string]string) (map[string]any, error) {
	raw := map[string]any{}
	for key, value := range values {
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(key, dotenvPrefix) {
			continue
		}
		field := strings.ToLower(strings.TrimPrefix(key, dotenvPrefix))
		value = strings.TrimSpace(value)
		switch field {
		case "service_name":
			raw[field] = value
		case "max_mailbox_drain", "batch_size", "max_attempts":
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, key, err)
			}
			raw[field] = parsed
		case "batch_schedule_offset", "backoff_interval", "max_backoff", "request_timeout":
			parsed, err := time.ParseDuration(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, key, err)
			}
			raw[field] = parsed
		case "backoff_rate":
			parsed, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, key, err)
			}
			raw[field] = parsed
		case "allow_private_addresses":
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, key, err)
			}
			raw[field] = parsed
		}
	}
	return raw, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || cfg.MaxMailboxDrain != 0 {
		layer["max_mailbox_drain"] = cfg.MaxMailboxDrain
	}
	if includeZero || cfg.BatchSize != 0 {
		layer["batch_size"] = cfg.BatchSize
	}
	if includeZero || cfg.BatchScheduleOffset != 0 {
		layer["batch_schedule_offset"] = cfg.BatchScheduleOffset
	}
	if includeZero || cfg.MaxAttempts != 0 {
		layer["max_attempts"] = cfg.MaxAttempts
	}
	if includeZero || cfg.BackoffInterval != 0 {
		layer["backoff_interval"] = cfg.BackoffInterval
	}
	if includeZero || cfg.BackoffRate != 0 {
		layer["backoff_rate"] = cfg.BackoffRate
	}
	if includeZero || cfg.MaxBackoff != 0 {
		layer["max_backoff"] = cfg.MaxBackoff
	}
	if includeZero || cfg.RequestTimeout != 0 {
		layer["request_timeout"] = cfg.RequestTimeout
	}
	if includeZero || cfg.AllowPrivateAddresses {
		layer["allow_private_addresses"] = cfg.AllowPrivateAddresses
	}
	return layer
}
