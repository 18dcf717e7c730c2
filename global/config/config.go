package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"linker/tools"
	"linker/tools/errs"
)

const (
	AuthModeTrust  = "trust"
	AuthModeVerify = "verify"

	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

// EnvConfigPath names the env var holding an optional YAML config file.
const EnvConfigPath = "LINKER_CONFIG"

// Default returns the configuration used when nothing is overridden.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Addr:           ":3000",
			NodeID:         "relay_01",
			NodeNum:        1,
			AllowedOrigins: []string{"*"},
			ShutdownGrace:  10 * time.Second,
		},
		Chat: ChatConfig{
			AuthMode:         AuthModeTrust,
			UnauthTTL:        0,
			StoreTimeout:     5 * time.Second,
			AuthTimeout:      3 * time.Second,
			MaxContentLength: 1000,
			SendQueue:        256,
			JobQueue:         32,
		},
		Store: StoreConfig{Driver: DriverMemory},
		Redis: RedisConfig{
			PoolSize:    20,
			Stream:      "linker:chat:messages",
			MaxLen:      10000,
			PresenceTTL: 2 * time.Minute,
		},
		Postgres: PostgresConfig{MaxConns: 10},
		Mongo: MongoConfig{
			Database:   "linker",
			Collection: "chat_messages",
		},
		Nats: NatsConfig{
			Subject: "linker.chat.message",
			Name:    "linker-relay",
		},
		JWT: JWTConfig{Alg: "HS256", TTL: 7 * 24 * time.Hour},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the config from defaults, the optional YAML file at path,
// then environment overrides. An empty path falls back to $LINKER_CONFIG.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errs.WrapMsg(err, "read config", "path", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errs.ErrArgs.WrapMsg("parse config", "path", path, "err", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(c *AppConfig) {
	c.Server.Addr = tools.GetEnv("LINKER_ADDR", c.Server.Addr)
	if port := tools.GetEnv("PORT", ""); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.NodeID = tools.GetEnv("LINKER_NODE_ID", c.Server.NodeID)
	c.Server.NodeNum = int64(tools.GetEnvInt("LINKER_NODE_NUM", int(c.Server.NodeNum)))
	c.Server.AllowedOrigins = tools.GetEnvList("LINKER_ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.ShutdownGrace = tools.GetEnvDuration("LINKER_SHUTDOWN_GRACE", c.Server.ShutdownGrace)

	c.Chat.AuthMode = tools.GetEnv("LINKER_AUTH_MODE", c.Chat.AuthMode)
	c.Chat.UnauthTTL = tools.GetEnvDuration("LINKER_UNAUTH_TTL", c.Chat.UnauthTTL)
	c.Chat.StoreTimeout = tools.GetEnvDuration("LINKER_STORE_TIMEOUT", c.Chat.StoreTimeout)
	c.Chat.AuthTimeout = tools.GetEnvDuration("LINKER_AUTH_TIMEOUT", c.Chat.AuthTimeout)
	c.Chat.MaxContentLength = tools.GetEnvInt("LINKER_MAX_CONTENT_LENGTH", c.Chat.MaxContentLength)
	c.Chat.EvictSlow = tools.GetEnvBool("LINKER_EVICT_SLOW", c.Chat.EvictSlow)

	c.Store.Driver = tools.GetEnv("LINKER_STORE_DRIVER", c.Store.Driver)

	c.Redis.Addr = tools.GetEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = tools.GetEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = tools.GetEnvInt("REDIS_DB", c.Redis.DB)

	c.Postgres.DSN = tools.GetEnv("DATABASE_URL", c.Postgres.DSN)
	c.Mongo.URI = tools.GetEnv("MONGO_URI", c.Mongo.URI)
	c.Nats.URL = tools.GetEnv("NATS_URL", c.Nats.URL)

	c.JWT.Secret = tools.GetEnv("JWT_SECRET", c.JWT.Secret)
	c.Log.Level = tools.GetEnv("LOG_LEVEL", c.Log.Level)
}

// Validate rejects settings the relay cannot run with.
func (c *AppConfig) Validate() error {
	c.Chat.AuthMode = strings.ToLower(strings.TrimSpace(c.Chat.AuthMode))
	switch c.Chat.AuthMode {
	case AuthModeTrust:
	case AuthModeVerify:
		if c.JWT.Secret == "" {
			return errs.ErrArgs.WrapMsg("verify auth mode needs jwt.secret")
		}
		if c.Postgres.DSN == "" && len(c.Accounts) == 0 {
			return errs.ErrArgs.WrapMsg("verify auth mode needs postgres.dsn or accounts for user lookup")
		}
	default:
		return errs.ErrArgs.WrapMsg("unknown chat.auth_mode", "auth_mode", c.Chat.AuthMode)
	}

	for i, a := range c.Accounts {
		if strings.TrimSpace(a.ID) == "" || strings.TrimSpace(a.Username) == "" {
			return errs.ErrArgs.WrapMsg("account needs id and username", "index", i)
		}
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errs.ErrArgs.WrapMsg("postgres store needs postgres.dsn")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errs.ErrArgs.WrapMsg("redis store needs redis.addr")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errs.ErrArgs.WrapMsg("mongo store needs mongo.uri")
		}
	default:
		return errs.ErrArgs.WrapMsg("unknown store.driver", "driver", c.Store.Driver)
	}

	if c.Chat.MaxContentLength <= 0 {
		return errs.ErrArgs.WrapMsg("chat.max_content_length must be positive")
	}
	if c.Chat.SendQueue <= 0 || c.Chat.JobQueue <= 0 {
		return errs.ErrArgs.WrapMsg("chat queues must be positive")
	}
	if c.Chat.StoreTimeout <= 0 {
		return errs.ErrArgs.WrapMsg("chat.store_timeout must be positive")
	}
	return nil
}
