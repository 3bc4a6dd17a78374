package server

import (
	"context"
	"errors"
	"strings"

	"brandgen-go/internal/access"
	"brandgen-go/internal/config"
	"brandgen-go/internal/constants"
	"brandgen-go/internal/monitoring"
	"brandgen-go/internal/storage"
	"brandgen-go/internal/streaming"

	log "github.com/sirupsen/logrus"
)

// Runtime bundles the storage-backed services shared by all handlers.
type Runtime struct {
	Raw     storage.Backend
	Storage storage.Backend
	Guard   streaming.Guard
	Access  access.Checker

	closers []func() error
}

// Close releases the backend and any auxiliary clients.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStorage initializes the configured backend, the persistence guard and
// the access checker. If the primary backend fails, memory storage is used
// so the relay keeps serving.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}
	raw, wrapped, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.WithError(err).Warn("primary storage unavailable; falling back to in-memory storage")
		fallback := cfg.Storage
		fallback.Backend = "memory"
		if raw, wrapped, err = storage.New(ctx, fallback); err != nil {
			return nil, err
		}
	}
	rt.Raw, rt.Storage = raw, wrapped
	rt.closers = append(rt.closers, raw.Close)

	rt.Guard = buildGuard(ctx, cfg.Storage, rt)

	rt.Access = access.AllowAll{}
	if cfg.Security.RequirePayment {
		if mongoBackend, ok := raw.(*storage.MongoDBBackend); ok {
			rt.Access = access.NewPaymentChecker(mongoBackend.Database(), cfg.Storage.Timeout())
		} else {
			log.WithField("backend", storage.BackendLabel(raw)).Warn("payment check needs mongodb storage; access is not restricted")
		}
	}
	return rt, nil
}

func buildGuard(ctx context.Context, sc config.StorageConfig, rt *Runtime) streaming.Guard {
	if !strings.EqualFold(strings.TrimSpace(sc.PersistGuard), "redis") {
		return streaming.NewMemoryGuard(constants.PersistGuardTTL)
	}
	if rb, ok := rt.Raw.(*storage.RedisBackend); ok {
		return storage.NewRedisGuard(rb.Client(), rb.Prefix(), constants.PersistGuardTTL)
	}
	rb := storage.NewRedisBackend(sc.RedisAddr, sc.RedisPassword, sc.RedisDB, sc.RedisPrefix, sc.Timeout())
	if err := rb.Initialize(ctx); err != nil {
		_ = rb.Close()
		log.WithError(err).Warn("redis persist guard unavailable; using in-memory guard")
		return streaming.NewMemoryGuard(constants.PersistGuardTTL)
	}
	rt.closers = append(rt.closers, rb.Close)
	return storage.NewRedisGuard(rb.Client(), rb.Prefix(), constants.PersistGuardTTL)
}

// StorageHealthCheck returns a periodic task body that pings the backend and
// exports the result as brandgen_storage_up.
func StorageHealthCheck(b storage.Backend) func(context.Context) error {
	label := storage.BackendLabel(b)
	return func(ctx context.Context) error {
		err := b.Health(ctx)
		if err != nil {
			monitoring.StorageUp.WithLabelValues(label).Set(0)
			return err
		}
		monitoring.StorageUp.WithLabelValues(label).Set(1)
		return nil
	}
}
