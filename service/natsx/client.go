package natsx

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"linker/tools/errs"
)

// Config holds the NATS connection settings.
type Config struct {
	Servers       []string
	Name          string
	User          string
	Password      string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

func (c *Config) setDefaults() error {
	if len(c.Servers) == 0 {
		return errs.ErrArgs.WrapMsg("nats servers missing")
	}
	if c.Name == "" {
		c.Name = "linker"
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 500 * time.Millisecond
	}
	if c.Timeout == 0 {
		c.Timeout = 3 * time.Second
	}
	return nil
}

// Client is a reconnecting NATS connection.
type Client struct {
	nc  *nats.Conn
	log *zap.Logger
}

// Connect dials NATS. The connection reconnects forever; state changes are
// logged.
func Connect(cfg Config, log *zap.Logger) (*Client, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "nats connect", "servers", cfg.Servers)
	}
	return &Client{nc: nc, log: log}, nil
}

func (c *Client) Conn() *nats.Conn { return c.nc }

// Close drains subscriptions and pending publishes.
func (c *Client) Close() error {
	if c.nc == nil {
		return nil
	}
	return c.nc.Drain()
}
