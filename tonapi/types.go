package tonapi

import (
	"fmt"

	"github.com/najoast/tlbridge/tl"
)

// Constructor ids of data types.
const (
	ErrorID                 int32 = -1679978726 // error code:int32 message:string = Error
	OkID                    int32 = -722616727  // ok = Ok
	PongID                  int32 = -867138035  // pong id:int64 = Pong
	ConfigID                int32 = -1538391496 // config config:string blockchain_name:string use_callbacks_for_network:Bool ignore_cache:Bool = Config
	KeyStoreTypeDirectoryID int32 = -378990038  // keyStoreTypeDirectory directory:string = KeyStoreType
	KeyStoreTypeInMemoryID  int32 = -2106848825 // keyStoreTypeInMemory = KeyStoreType
	OptionsID               int32 = -1924388359 // options config:config keystore_type:KeyStoreType = Options
	OptionsInfoID           int32 = 24204098    // options.info default_wallet_id:int64 = options.Info
	LogVerbosityLevelID     int32 = 1734624234  // logVerbosityLevel verbosity_level:int32 = LogVerbosityLevel
	LogTagsID               int32 = -603337004  // logTags tags:vector<string> = LogTags
)

// Error is the structured error variant. It doubles as a Go error.
type Error struct {
	Code    int32
	Message string
}

func (*Error) ID() int32        { return ErrorID }
func (*Error) TypeName() string { return "error" }

func (e *Error) Store(s tl.Storer) {
	s.StoreInt32(e.Code)
	s.StoreString(e.Message)
}

func (e *Error) Fetch(p *tl.Parser) {
	e.Code = p.FetchInt32()
	e.Message = p.FetchString()
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Ok is the empty success variant.
type Ok struct{}

func (*Ok) ID() int32        { return OkID }
func (*Ok) TypeName() string { return "ok" }
func (*Ok) Store(tl.Storer)  {}
func (*Ok) Fetch(*tl.Parser) {}

// Pong answers Ping with the same id.
type Pong struct {
	PingID int64
}

func (*Pong) ID() int32            { return PongID }
func (*Pong) TypeName() string     { return "pong" }
func (o *Pong) Store(s tl.Storer)  { s.StoreInt64(o.PingID) }
func (o *Pong) Fetch(p *tl.Parser) { o.PingID = p.FetchInt64() }

// Config carries the network configuration passed to Init.
type Config struct {
	Config                 string
	BlockchainName         string
	UseCallbacksForNetwork bool
	IgnoreCache            bool
}

func (*Config) ID() int32        { return ConfigID }
func (*Config) TypeName() string { return "config" }

func (o *Config) Store(s tl.Storer) {
	s.StoreString(o.Config)
	s.StoreString(o.BlockchainName)
	s.StoreBool(o.UseCallbacksForNetwork)
	s.StoreBool(o.IgnoreCache)
}

func (o *Config) Fetch(p *tl.Parser) {
	o.Config = p.FetchString()
	o.BlockchainName = p.FetchString()
	o.UseCallbacksForNetwork = p.FetchBool()
	o.IgnoreCache = p.FetchBool()
}

// KeyStoreType selects where the worker keeps keys.
type KeyStoreType interface {
	tl.Object
	keyStoreType()
}

// KeyStoreTypeDirectory stores keys under a directory.
type KeyStoreTypeDirectory struct {
	Directory string
}

func (*KeyStoreTypeDirectory) ID() int32            { return KeyStoreTypeDirectoryID }
func (*KeyStoreTypeDirectory) TypeName() string     { return "keyStoreTypeDirectory" }
func (o *KeyStoreTypeDirectory) Store(s tl.Storer)  { s.StoreString(o.Directory) }
func (o *KeyStoreTypeDirectory) Fetch(p *tl.Parser) { o.Directory = p.FetchString() }
func (*KeyStoreTypeDirectory) keyStoreType()        {}

// KeyStoreTypeInMemory keeps keys in memory only.
type KeyStoreTypeInMemory struct{}

func (*KeyStoreTypeInMemory) ID() int32        { return KeyStoreTypeInMemoryID }
func (*KeyStoreTypeInMemory) TypeName() string { return "keyStoreTypeInMemory" }
func (*KeyStoreTypeInMemory) Store(tl.Storer)  {}
func (*KeyStoreTypeInMemory) Fetch(*tl.Parser) {}
func (*KeyStoreTypeInMemory) keyStoreType()    {}

// Options is the argument of Init.
type Options struct {
	Config       *Config
	KeystoreType KeyStoreType
}

func (*Options) ID() int32        { return OptionsID }
func (*Options) TypeName() string { return "options" }

func (o *Options) Store(s tl.Storer) {
	s.StoreObject(o.Config)
	s.StoreObject(o.KeystoreType)
}

func (o *Options) Fetch(p *tl.Parser) {
	o.Config = tl.FetchAs[*Config](p)
	o.KeystoreType = tl.FetchAs[KeyStoreType](p)
}

// OptionsInfo is the reply to Init.
type OptionsInfo struct {
	DefaultWalletID int64
}

func (*OptionsInfo) ID() int32            { return OptionsInfoID }
func (*OptionsInfo) TypeName() string     { return "options.info" }
func (o *OptionsInfo) Store(s tl.Storer)  { s.StoreInt64(o.DefaultWalletID) }
func (o *OptionsInfo) Fetch(p *tl.Parser) { o.DefaultWalletID = p.FetchInt64() }

// LogVerbosityLevel reports a verbosity level.
type LogVerbosityLevel struct {
	VerbosityLevel int32
}

func (*LogVerbosityLevel) ID() int32            { return LogVerbosityLevelID }
func (*LogVerbosityLevel) TypeName() string     { return "logVerbosityLevel" }
func (o *LogVerbosityLevel) Store(s tl.Storer)  { s.StoreInt32(o.VerbosityLevel) }
func (o *LogVerbosityLevel) Fetch(p *tl.Parser) { o.VerbosityLevel = p.FetchInt32() }

// LogTags lists the known log tags.
type LogTags struct {
	Tags []string
}

func (*LogTags) ID() int32        { return LogTagsID }
func (*LogTags) TypeName() string { return "logTags" }

func (o *LogTags) Store(s tl.Storer) {
	s.StoreInt32(int32(len(o.Tags)))
	for _, tag := range o.Tags {
		s.StoreString(tag)
	}
}

func (o *LogTags) Fetch(p *tl.Parser) {
	n := p.FetchVectorLength(4)
	o.Tags = make([]string, 0, n)
	for i := 0; i < n && p.Err() == nil; i++ {
		o.Tags = append(o.Tags, p.FetchString())
	}
}
