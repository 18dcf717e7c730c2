package config

import "time"

type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Chat     ChatConfig     `yaml:"chat"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Nats     NatsConfig     `yaml:"nats"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Accounts []Account      `yaml:"accounts"` // seeded at startup
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`    // http listen address
	NodeID         string        `yaml:"node_id"` // presence key suffix
	NodeNum        int64         `yaml:"node_num"`
	AllowedOrigins []string      `yaml:"allowed_origins"` // "*" allows any
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
}

type ChatConfig struct {
	AuthMode         string        `yaml:"auth_mode"` // trust | verify
	UnauthTTL        time.Duration `yaml:"unauth_ttl"`
	StoreTimeout     time.Duration `yaml:"store_timeout"`
	AuthTimeout      time.Duration `yaml:"auth_timeout"`
	MaxContentLength int           `yaml:"max_content_length"`
	SendQueue        int           `yaml:"send_queue"`
	JobQueue         int           `yaml:"job_queue"`
	EvictSlow        bool          `yaml:"evict_slow"` // close clients whose send queue is full
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // memory | postgres | redis | mongo
}

type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	Stream      string        `yaml:"stream"`
	MaxLen      int64         `yaml:"max_len"`
	PresenceTTL time.Duration `yaml:"presence_ttl"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type NatsConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Name    string `yaml:"name"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Alg    string        `yaml:"alg"`
	TTL    time.Duration `yaml:"ttl"`
}

// Account is a seeded login. Role defaults to USER and status to APPROVED.
type Account struct {
	ID           string `yaml:"id"`
	Username     string `yaml:"username"`
	Role         string `yaml:"role"`
	Status       string `yaml:"status"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

type LogConfig struct {
	Level string `yaml:"level"`
}
