package global

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"linker/global/config"
	midsec "linker/middleware/security"
	usermodel "linker/module/user/model"
	userservice "linker/module/user/service"
	"linker/service/chat"
	"linker/service/natsx"
	"linker/service/storage"
	"linker/tools/errs"
)

// NewMessageStore builds the store the config selects, creating its schema.
func NewMessageStore(ctx context.Context, cfg config.AppConfig, res *Resources) (chat.MessageStore, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory, "":
		return storage.NewMemoryStore(), nil
	case config.DriverPostgres:
		if res.Pg == nil {
			return nil, errs.ErrArgs.WrapMsg("postgres store needs a dsn")
		}
		s := storage.NewPgMessageStore(res.Pg)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverRedis:
		if res.Redis == nil {
			return nil, errs.ErrArgs.WrapMsg("redis store needs an addr")
		}
		return storage.NewRedisStreamStore(res.Redis, cfg.Redis.Stream, cfg.Redis.MaxLen), nil
	case config.DriverMongo:
		if res.Mongo == nil {
			return nil, errs.ErrArgs.WrapMsg("mongo store needs a uri")
		}
		s := storage.NewMongoMessageStore(res.Mongo, cfg.Mongo.Collection)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errs.ErrArgs.WrapMsg("unknown store driver", "driver", cfg.Store.Driver)
	}
}

// NewAccountStore returns where accounts live: Postgres when configured,
// otherwise memory. Configured accounts are seeded into either. Nil means
// there is neither Postgres nor a seeded account.
func NewAccountStore(ctx context.Context, cfg config.AppConfig, res *Resources) (userservice.AccountStore, error) {
	if res.Pg != nil {
		repo := userservice.NewPgRepository(res.Pg)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		for _, a := range cfg.Accounts {
			if err := repo.Upsert(ctx, seededUser(a)); err != nil {
				return nil, err
			}
		}
		return repo, nil
	}
	if len(cfg.Accounts) == 0 {
		return nil, nil
	}
	repo := userservice.NewMemoryRepository()
	for _, a := range cfg.Accounts {
		repo.Put(seededUser(a))
	}
	return repo, nil
}

func seededUser(a config.Account) usermodel.User {
	u := usermodel.User{
		ID:           a.ID,
		Username:     a.Username,
		Role:         usermodel.Role(strings.ToUpper(a.Role)),
		Status:       usermodel.Status(strings.ToUpper(a.Status)),
		PasswordHash: a.PasswordHash,
	}
	if u.Role == "" {
		u.Role = usermodel.RoleUser
	}
	if u.Status == "" {
		u.Status = usermodel.StatusApproved
	}
	return u
}

// NewIdentityLookup resolves session tokens for the HTTP API and verify
// mode. Accounts come from the account store when there is one, otherwise
// from the token claims. Nil means no JWT secret is set.
func NewIdentityLookup(cfg config.AppConfig, accounts userservice.AccountStore) midsec.Lookup {
	if cfg.JWT.Secret == "" {
		return nil
	}
	if accounts == nil {
		return userservice.NewClaimsLookup(JWTOptions(cfg))
	}
	return userservice.NewTokenLookup(JWTOptions(cfg), accounts)
}

// NewLoginService enables password login when there is an account store.
func NewLoginService(cfg config.AppConfig, accounts userservice.AccountStore) *userservice.LoginService {
	if cfg.JWT.Secret == "" || accounts == nil {
		return nil
	}
	return userservice.NewLoginService(JWTOptions(cfg), accounts)
}

// NewAuthenticator picks the relay's trust seam.
func NewAuthenticator(cfg config.AppConfig, lookup midsec.Lookup) (chat.Authenticator, error) {
	if cfg.Chat.AuthMode != config.AuthModeVerify {
		return chat.TrustingAuthenticator{}, nil
	}
	if lookup == nil {
		return nil, errs.ErrArgs.WrapMsg("verify mode needs a jwt secret")
	}
	return chat.NewVerifyingAuthenticator(lookup), nil
}

// AttachSinks wires the optional presence mirror and event bus.
func AttachSinks(s *chat.Server, cfg config.AppConfig, res *Resources, log *zap.Logger) {
	if res.Redis != nil {
		s.SetPresenceSink(storage.NewRedisPresence(res.Redis, cfg.Server.NodeID, cfg.Redis.PresenceTTL))
		log.Info("presence mirror on", zap.String("key", storage.PresenceKey(cfg.Server.NodeID)))
	}
	if res.Nats != nil {
		p := natsx.NewPublisher(res.Nats, cfg.Nats.Subject, cfg.Server.NodeID)
		s.SetEventSink(p)
		log.Info("chat events on", zap.String("subject", p.Subject()))
	}
}
