package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-mailbox/core"
)

// DefaultLoggerName is the logger name the mailbox service resolves.
const DefaultLoggerName = "mailbox"

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	if name == "" {
		name = DefaultLoggerName
	}
	return glog.Resolve(name, provider, logger)
}

// ServiceOptions resolves once and hands the same provider and logger to
// the mailbox service.
func ServiceOptions(provider glog.LoggerProvider, logger glog.Logger) []core.Option {
	resolvedProvider, resolvedLogger := Resolve(DefaultLoggerName, provider, logger)
	return []core.Option{
		core.WithLoggerProvider(resolvedProvider),
		core.WithLogger(resolvedLogger),
	}
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger maps a glog logger to the go-job logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves glog logger/provider then returns equivalent go-job
// adapters, so queue workers and the mailbox service log through one sink.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}
