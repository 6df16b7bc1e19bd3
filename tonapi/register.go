package tonapi

import "github.com/najoast/tlbridge/tl"

func init() {
	Register(tl.DefaultRegistry)
}

// Register adds every constructor of this package to r.
func Register(r *tl.Registry) {
	r.RegisterType(ErrorID, "error", func() tl.Object { return &Error{} })
	r.RegisterType(OkID, "ok", func() tl.Object { return &Ok{} })
	r.RegisterType(PongID, "pong", func() tl.Object { return &Pong{} })
	r.RegisterType(ConfigID, "config", func() tl.Object { return &Config{} })
	r.RegisterType(KeyStoreTypeDirectoryID, "keyStoreTypeDirectory", func() tl.Object { return &KeyStoreTypeDirectory{} })
	r.RegisterType(KeyStoreTypeInMemoryID, "keyStoreTypeInMemory", func() tl.Object { return &KeyStoreTypeInMemory{} })
	r.RegisterType(OptionsID, "options", func() tl.Object { return &Options{} })
	r.RegisterType(OptionsInfoID, "options.info", func() tl.Object { return &OptionsInfo{} })
	r.RegisterType(LogVerbosityLevelID, "logVerbosityLevel", func() tl.Object { return &LogVerbosityLevel{} })
	r.RegisterType(LogTagsID, "logTags", func() tl.Object { return &LogTags{} })

	r.RegisterFunction(InitID, "init", func() tl.Function { return &Init{} })
	r.RegisterFunction(CloseID, "close", func() tl.Function { return &Close{} })
	r.RegisterFunction(PingID, "ping", func() tl.Function { return &Ping{} })
	r.RegisterFunction(SetLogVerbosityLevelID, "setLogVerbosityLevel", func() tl.Function { return &SetLogVerbosityLevel{} })
	r.RegisterFunction(GetLogVerbosityLevelID, "getLogVerbosityLevel", func() tl.Function { return &GetLogVerbosityLevel{} })
	r.RegisterFunction(GetLogTagsID, "getLogTags", func() tl.Function { return &GetLogTags{} })
	r.RegisterFunction(SetLogTagVerbosityLevelID, "setLogTagVerbosityLevel", func() tl.Function { return &SetLogTagVerbosityLevel{} })
	r.RegisterFunction(GetLogTagVerbosityLevelID, "getLogTagVerbosityLevel", func() tl.Function { return &GetLogTagVerbosityLevel{} })
	r.RegisterFunction(AddLogMessageID, "addLogMessage", func() tl.Function { return &AddLogMessage{} })
}
