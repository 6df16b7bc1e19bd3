package tonapi

import "github.com/najoast/tlbridge/tl"

// Constructor ids of functions.
const (
	InitID                    int32 = -1000594762 // init options:options = options.Info
	CloseID                   int32 = -1187782273 // close = Ok
	PingID                    int32 = 1368165662  // ping id:int64 = Pong
	SetLogVerbosityLevelID    int32 = -303429678  // setLogVerbosityLevel new_verbosity_level:int32 = Ok
	GetLogVerbosityLevelID    int32 = 594057956   // getLogVerbosityLevel = LogVerbosityLevel
	GetLogTagsID              int32 = -254449190  // getLogTags = LogTags
	SetLogTagVerbosityLevelID int32 = -2095589738 // setLogTagVerbosityLevel tag:string new_verbosity_level:int32 = Ok
	GetLogTagVerbosityLevelID int32 = 951004547   // getLogTagVerbosityLevel tag:string = LogVerbosityLevel
	AddLogMessageID           int32 = 1597427692  // addLogMessage verbosity_level:int32 text:string = Ok
)

// Init configures the worker. It must be the first async request.
type Init struct {
	Options *Options
}

func (*Init) ID() int32            { return InitID }
func (*Init) TypeName() string     { return "init" }
func (*Init) ReturnType() string   { return "options.Info" }
func (f *Init) Store(s tl.Storer)  { s.StoreObject(f.Options) }
func (f *Init) Fetch(p *tl.Parser) { f.Options = tl.FetchAs[*Options](p) }

// Close shuts the worker down; later requests fail.
type Close struct{}

func (*Close) ID() int32          { return CloseID }
func (*Close) TypeName() string   { return "close" }
func (*Close) ReturnType() string { return "Ok" }
func (*Close) Store(tl.Storer)    {}
func (*Close) Fetch(*tl.Parser)   {}

// Ping is answered with a Pong carrying the same id.
type Ping struct {
	PingID int64
}

func (*Ping) ID() int32            { return PingID }
func (*Ping) TypeName() string     { return "ping" }
func (*Ping) ReturnType() string   { return "Pong" }
func (f *Ping) Store(s tl.Storer)  { s.StoreInt64(f.PingID) }
func (f *Ping) Fetch(p *tl.Parser) { f.PingID = p.FetchInt64() }

// SetLogVerbosityLevel changes the global verbosity.
type SetLogVerbosityLevel struct {
	NewVerbosityLevel int32
}

func (*SetLogVerbosityLevel) ID() int32            { return SetLogVerbosityLevelID }
func (*SetLogVerbosityLevel) TypeName() string     { return "setLogVerbosityLevel" }
func (*SetLogVerbosityLevel) ReturnType() string   { return "Ok" }
func (f *SetLogVerbosityLevel) Store(s tl.Storer)  { s.StoreInt32(f.NewVerbosityLevel) }
func (f *SetLogVerbosityLevel) Fetch(p *tl.Parser) { f.NewVerbosityLevel = p.FetchInt32() }

// GetLogVerbosityLevel reads the global verbosity.
type GetLogVerbosityLevel struct{}

func (*GetLogVerbosityLevel) ID() int32          { return GetLogVerbosityLevelID }
func (*GetLogVerbosityLevel) TypeName() string   { return "getLogVerbosityLevel" }
func (*GetLogVerbosityLevel) ReturnType() string { return "LogVerbosityLevel" }
func (*GetLogVerbosityLevel) Store(tl.Storer)    {}
func (*GetLogVerbosityLevel) Fetch(*tl.Parser)   {}

// GetLogTags lists the log tags.
type GetLogTags struct{}

func (*GetLogTags) ID() int32          { return GetLogTagsID }
func (*GetLogTags) TypeName() string   { return "getLogTags" }
func (*GetLogTags) ReturnType() string { return "LogTags" }
func (*GetLogTags) Store(tl.Storer)    {}
func (*GetLogTags) Fetch(*tl.Parser)   {}

// SetLogTagVerbosityLevel changes the verbosity of one tag.
type SetLogTagVerbosityLevel struct {
	Tag               string
	NewVerbosityLevel int32
}

func (*SetLogTagVerbosityLevel) ID() int32          { return SetLogTagVerbosityLevelID }
func (*SetLogTagVerbosityLevel) TypeName() string   { return "setLogTagVerbosityLevel" }
func (*SetLogTagVerbosityLevel) ReturnType() string { return "Ok" }

func (f *SetLogTagVerbosityLevel) Store(s tl.Storer) {
	s.StoreString(f.Tag)
	s.StoreInt32(f.NewVerbosityLevel)
}

func (f *SetLogTagVerbosityLevel) Fetch(p *tl.Parser) {
	f.Tag = p.FetchString()
	f.NewVerbosityLevel = p.FetchInt32()
}

// GetLogTagVerbosityLevel reads the verbosity of one tag.
type GetLogTagVerbosityLevel struct {
	Tag string
}

func (*GetLogTagVerbosityLevel) ID() int32            { return GetLogTagVerbosityLevelID }
func (*GetLogTagVerbosityLevel) TypeName() string     { return "getLogTagVerbosityLevel" }
func (*GetLogTagVerbosityLevel) ReturnType() string   { return "LogVerbosityLevel" }
func (f *GetLogTagVerbosityLevel) Store(s tl.Storer)  { s.StoreString(f.Tag) }
func (f *GetLogTagVerbosityLevel) Fetch(p *tl.Parser) { f.Tag = p.FetchString() }

// AddLogMessage writes text to the log if verbosity allows it.
type AddLogMessage struct {
	VerbosityLevel int32
	Text           string
}

func (*AddLogMessage) ID() int32          { return AddLogMessageID }
func (*AddLogMessage) TypeName() string   { return "addLogMessage" }
func (*AddLogMessage) ReturnType() string { return "Ok" }

func (f *AddLogMessage) Store(s tl.Storer) {
	s.StoreInt32(f.VerbosityLevel)
	s.StoreString(f.Text)
}

func (f *AddLogMessage) Fetch(p *tl.Parser) {
	f.VerbosityLevel = p.FetchInt32()
	f.Text = p.FetchString()
}
