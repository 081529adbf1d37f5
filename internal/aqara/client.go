package aqara

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/shell"
)

// Shell is the subset of a shell session the device client needs.
type Shell interface {
	Host() string
	Dialect() shell.Dialect
	Run(ctx context.Context, command string) string
	RunWithTimeout(ctx context.Context, command string, timeout time.Duration) string
	GetProperty(ctx context.Context, key string) string
	SetProperty(ctx context.Context, key string, value string)
	DumpProperties(ctx context.Context) map[string]string
	Connected() bool
	Close() error
}

type Client struct {
	shell   Shell
	options *clientOptions

	motorReady atomic.Bool

	propsMu    sync.RWMutex
	properties map[string]string

	streamMu sync.Mutex
	stream   StreamConfig
}

func NewClient(sh Shell, options ...ClientOptioner) *Client {
	opts := &clientOptions{
		urlTemplate:  configs.DefaultProvisioningUrlTemplate,
		binDir:       configs.DefaultBinDir,
		scriptPath:   configs.DefaultScriptPath,
		extractJSON:  DefaultJSONExtractor,
		rtspSettle:   2 * time.Second,
		fetchTimeout: 60 * time.Second,
		anchorKey:    DefaultAnchorKey,
		dumpAttempts: 2,
	}
	for _, o := range options {
		o(opts)
	}
	return &Client{
		shell:      sh,
		options:    opts,
		properties: map[string]string{},
	}
}

func (c *Client) Host() string {
	return c.shell.Host()
}

func (c *Client) Dialect() shell.Dialect {
	return c.shell.Dialect()
}

// Connected reports whether the underlying session can still be used.
func (c *Client) Connected() bool {
	return c.shell.Connected()
}

func (c *Client) Close() error {
	return c.shell.Close()
}

func (c *Client) binPath(name string) string {
	return c.options.binDir + "/" + name
}

type clientOptions struct {
	urlTemplate  string
	binDir       string
	scriptPath   string
	extractJSON  JSONExtractor
	rtspSettle   time.Duration
	fetchTimeout time.Duration
	anchorKey    string
	dumpAttempts uint
}

type ClientOptioner func(o *clientOptions)

func WithProvisioning(c *configs.ProvisioningConfigs) ClientOptioner {
	return func(o *clientOptions) {
		if len(c.UrlTemplate) > 0 {
			o.urlTemplate = c.UrlTemplate
		}
		if len(c.BinDir) > 0 {
			o.binDir = c.BinDir
		}
		if len(c.ScriptPath) > 0 {
			o.scriptPath = c.ScriptPath
		}
	}
}

// WithJSONExtractor swaps the cleanup applied to the RTSP URL property
// before it is parsed, for firmware that frames it differently.
func WithJSONExtractor(f JSONExtractor) ClientOptioner {
	return func(o *clientOptions) {
		if f != nil {
			o.extractJSON = f
		}
	}
}

// WithRtspSettle sets how long to wait for the RTSP server to come back
// after it was restarted.
func WithRtspSettle(d time.Duration) ClientOptioner {
	return func(o *clientOptions) {
		o.rtspSettle = d
	}
}

func WithFetchTimeout(d time.Duration) ClientOptioner {
	return func(o *clientOptions) {
		o.fetchTimeout = d
	}
}

func WithAnchorKey(key string) ClientOptioner {
	return func(o *clientOptions) {
		o.anchorKey = key
	}
}
