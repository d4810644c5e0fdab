package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ PayloadStore    = (*MemoryPayloadStore)(nil)
	_ Deliverer       = (*Executor)(nil)
	_ DrainRunner     = (*Drainer)(nil)
	_ DrainDispatcher = (*InlineDispatcher)(nil)
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ RawConfigLoader = (*DotenvConfigLoader)(nil)
	_ OptionsResolver = GoOptionsResolver{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
