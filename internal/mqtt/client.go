package custmqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
)

func NewClient(ctx context.Context, options ...ClientOptioner) (*autopaho.ConnectionManager, error) {
	opts := &ClientOptions{}
	for _, opt := range options {
		opt(opts)
	}

	globalConfigs := opts.globalConfigs
	connUrl := BrokerUrl(globalConfigs)

	router := paho.NewStandardRouter()

	if opts.register != nil {
		opts.register(router)
	}

	clientConfigs := autopaho.ClientConfig{
		KeepAlive:         20,
		ConnectRetryDelay: time.Second * 5,
		ConnectTimeout:    time.Second * 2,
		BrokerUrls: []*url.URL{
			connUrl,
		},
		ClientConfig: paho.ClientConfig{
			ClientID: fmt.Sprintf("%s-%s", globalConfigs.Name, uuid.NewString()[:8]),
			Router:   router,
		},
	}

	if globalConfigs.TlsEnabled {
		clientConfigs.TlsCfg = makeTlsConfigs(globalConfigs)
	}

	if globalConfigs.HasAuth() {
		clientConfigs.SetUsernamePassword(globalConfigs.Username, []byte(globalConfigs.Password))
	}

	if opts.reconCallback != nil {
		clientConfigs.OnConnectionUp = opts.reconCallback
	}

	if opts.connErrCallback != nil {
		clientConfigs.OnConnectError = opts.connErrCallback
	}

	if opts.clientErr != nil {
		clientConfigs.ClientConfig.OnClientError = opts.clientErr
	}

	if opts.serverDisconnect != nil {
		clientConfigs.ClientConfig.OnServerDisconnect = opts.serverDisconnect
	}

	connManager, err := autopaho.NewConnection(ctx, clientConfigs)
	if err != nil {
		logger.SError("MQTT connection failed",
			zap.String("broker", connUrl.String()),
			zap.Error(err))
		return nil, err
	}

	awaitCtx, cancel := context.WithTimeout(ctx, opts.awaitTimeout())
	defer cancel()
	if err := connManager.AwaitConnection(awaitCtx); err != nil {
		logger.SWarn("MQTT waiting for connection failed, retrying in background",
			zap.String("broker", connUrl.String()),
			zap.Error(err))
	}

	return connManager, nil
}

func BrokerUrl(c *configs.EventStoreConfigs) *url.URL {
	connUrl := &url.URL{}
	if c.TlsEnabled {
		connUrl.Scheme = "tls"
	} else {
		connUrl.Scheme = "mqtt"
	}
	hostname := c.Host
	if c.Port > 0 {
		hostname = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	connUrl.Host = hostname
	return connUrl
}

func makeTlsConfigs(globalConfigs *configs.EventStoreConfigs) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
	}
}

type ClientOptions struct {
	globalConfigs    *configs.EventStoreConfigs
	reconCallback    func(cm *autopaho.ConnectionManager, connack *paho.Connack)
	connErrCallback  func(err error)
	serverDisconnect func(d *paho.Disconnect)
	clientErr        func(err error)
	register         RouterRegister
	awaitFor         time.Duration
}

func (o *ClientOptions) awaitTimeout() time.Duration {
	if o.awaitFor > 0 {
		return o.awaitFor
	}
	return 5 * time.Second
}

type ClientOptioner func(options *ClientOptions)

type RouterRegister func(router *paho.StandardRouter)

func WithClientGlobalConfigs(configs *configs.EventStoreConfigs) ClientOptioner {
	return func(options *ClientOptions) {
		options.globalConfigs = configs
	}
}

func WithOnReconnection(cb func(cm *autopaho.ConnectionManager, connack *paho.Connack)) ClientOptioner {
	return func(options *ClientOptions) {
		options.reconCallback = cb
	}
}

func WithOnConnectError(cb func(err error)) ClientOptioner {
	return func(options *ClientOptions) {
		options.connErrCallback = cb
	}
}

func WithOnServerDisconnect(cb func(d *paho.Disconnect)) ClientOptioner {
	return func(options *ClientOptions) {
		options.serverDisconnect = cb
	}
}

func WithClientError(cb func(err error)) ClientOptioner {
	return func(options *ClientOptions) {
		options.clientErr = cb
	}
}

func WithHandlerRegister(cb RouterRegister) ClientOptioner {
	return func(options *ClientOptions) {
		options.register = cb
	}
}

func WithAwaitConnection(d time.Duration) ClientOptioner {
	return func(options *ClientOptions) {
		options.awaitFor = d
	}
}
