package providers

import (
	"context"
	"errors"

	"github.com/samber/do/v2"

	"github.com/listenupapp/doujinshelf/internal/config"
	"github.com/listenupapp/doujinshelf/internal/logger"
	"github.com/listenupapp/doujinshelf/internal/ratelimit"
	"github.com/listenupapp/doujinshelf/internal/remote"
	"github.com/listenupapp/doujinshelf/internal/remote/chaika"
	"github.com/listenupapp/doujinshelf/internal/remote/ehentai"
	"github.com/listenupapp/doujinshelf/internal/sessions"
)

// remoteBurst is the token bucket depth per remote host.
const remoteBurst = 2

// ProvideSessions opens the persistent adapter session store.
func ProvideSessions(i do.Injector) (*sessions.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return sessions.Open(cfg.SessionDir(), log.Component("sessions"))
}

// LimiterHandle wraps the shared per-host rate limiter.
type LimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *LimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the limiter every adapter shares.
func ProvideRateLimiter(i do.Injector) (*LimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &LimiterHandle{ratelimit.New(cfg.Resolver.RequestsPerSecond, remoteBurst)}, nil
}

// RegistryHandle wraps the adapter registry and closes every adapter on
// shutdown so sessions are persisted.
type RegistryHandle struct {
	*remote.Registry
	closers []func() error
}

// Shutdown implements do.Shutdownable.
func (h *RegistryHandle) Shutdown() error {
	var errs []error
	for _, c := range h.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// ProvideRegistry builds the remote adapters: ehentai as primary, chaika as
// the fallback when enabled.
func ProvideRegistry(i do.Injector) (*RegistryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*sessions.Store](i)
	limiter := do.MustInvoke[*LimiterHandle](i)

	clientOpts := remote.ClientOptions{
		Timeout:  cfg.Resolver.Timeout.Duration,
		Limiter:  limiter.KeyedRateLimiter,
		Sessions: store,
	}

	ctx := context.Background()
	eh := ehentai.New(ctx, ehentai.Options{
		BaseURL: cfg.Resolver.DefaultSource,
		Client:  clientOpts,
	}, log.Component(ehentai.Name))

	reg := remote.NewRegistry()
	reg.Register(eh, false)
	h := &RegistryHandle{Registry: reg, closers: []func() error{eh.Close}}

	if cfg.Resolver.EnableFallback {
		ch := chaika.New(ctx, chaika.Options{Client: clientOpts}, log.Component(chaika.Name))
		reg.Register(ch, true)
		h.closers = append(h.closers, ch.Close)
	}

	log.Debug("remote sources ready", "sources", reg.Names(), "default", cfg.Resolver.DefaultSource)
	return h, nil
}
