package global

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"linker/global/config"
	"linker/service/mgo"
	"linker/service/natsx"
	redis "linker/service/storage/redis"
	"linker/tools/errs"
	"linker/tools/ids"
	jwtlib "linker/tools/security"
)

// Resources are the external clients opened at startup. Nil fields are not
// configured.
type Resources struct {
	Redis *goredis.Client
	Pg    *pgxpool.Pool
	Mongo *mongo.Database
	Nats  *natsx.Client

	closers []func()
}

// Close releases clients in reverse open order.
func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

func (r *Resources) onClose(f func()) { r.closers = append(r.closers, f) }

// ConfigAll opens every client the config names. On error the clients opened
// so far are closed.
func ConfigAll(ctx context.Context, cfg config.AppConfig, log *zap.Logger) (*Resources, error) {
	ConfigIds(cfg)
	res := &Resources{}
	steps := []func(context.Context, config.AppConfig, *Resources, *zap.Logger) error{
		ConfigRedis,
		ConfigPostgres,
		ConfigMgo,
		ConfigNats,
	}
	for _, step := range steps {
		if err := step(ctx, cfg, res, log); err != nil {
			res.Close()
			return nil, err
		}
	}
	return res, nil
}

func ConfigIds(cfg config.AppConfig) {
	ids.SetNodeID(cfg.Server.NodeNum)
}

func JWTOptions(cfg config.AppConfig) jwtlib.Options {
	opts := jwtlib.DefaultOptions([]byte(cfg.JWT.Secret))
	if cfg.JWT.Alg != "" {
		opts.Alg = cfg.JWT.Alg
	}
	if cfg.JWT.TTL > 0 {
		opts.TTL = cfg.JWT.TTL
	}
	return opts
}

func ConfigRedis(ctx context.Context, cfg config.AppConfig, res *Resources, log *zap.Logger) error {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rdb, err := redis.Open(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	res.Redis = rdb
	res.onClose(func() { _ = rdb.Close() })
	log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	return nil
}

func ConfigPostgres(ctx context.Context, cfg config.AppConfig, res *Resources, log *zap.Logger) error {
	if cfg.Postgres.DSN == "" {
		return nil
	}
	pcfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		return errs.ErrArgs.WrapMsg("parse postgres dsn", "cause", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		pcfg.MaxConns = cfg.Postgres.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return errs.WrapMsg(err, "open postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return errs.WrapMsg(err, "ping postgres")
	}
	res.Pg = pool
	res.onClose(pool.Close)
	log.Info("postgres connected", zap.String("host", pcfg.ConnConfig.Host))
	return nil
}

func ConfigMgo(ctx context.Context, cfg config.AppConfig, res *Resources, log *zap.Logger) error {
	if cfg.Mongo.URI == "" {
		return nil
	}
	db, err := mgo.Connect(ctx, mgo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	res.Mongo = db
	res.onClose(func() { _ = db.Client().Disconnect(context.Background()) })
	log.Info("mongo connected", zap.String("database", cfg.Mongo.Database))
	return nil
}

func ConfigNats(_ context.Context, cfg config.AppConfig, res *Resources, log *zap.Logger) error {
	if cfg.Nats.URL == "" {
		return nil
	}
	nc, err := natsx.Connect(natsx.Config{
		Servers: strings.Split(cfg.Nats.URL, ","),
		Name:    cfg.Nats.Name,
	}, log.Named("nats"))
	if err != nil {
		return err
	}
	res.Nats = nc
	res.onClose(func() { _ = nc.Close() })
	log.Info("nats connected", zap.String("url", cfg.Nats.URL))
	return nil
}
