package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/watizat/helpmap/internal/events"
	"github.com/watizat/helpmap/internal/resilience"
	"github.com/watizat/helpmap/internal/server"
	"github.com/watizat/helpmap/internal/store"
)

// openStore opens the configured backend without decorators. Callers own
// Close.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		SQLitePath:  cfg.Store.SQLitePath,
		MaxConns:    cfg.Store.MaxConns,
		MinConns:    cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	zap.L().Debug("store opened", zap.String("driver", cfg.Store.Driver))
	return st, nil
}

// decorateStore adds read retries and, when enabled, the help-location cache.
func decorateStore(st store.Store) store.Store {
	var out store.Store = store.NewRetryStore(st, resilience.FromConfig(
		cfg.Retry.MaxAttempts,
		cfg.Retry.InitialBackoffMs,
		cfg.Retry.MaxBackoffMs,
	))
	if cfg.Cache.LocationsTTLSecs > 0 {
		out = store.NewCachedStore(out, cfg.Cache.MaxEntries, secs(cfg.Cache.LocationsTTLSecs))
	}
	return out
}

func eventsConfig() events.Config {
	return events.Config{
		NATSURL:       cfg.Events.NATSURL,
		SubjectPrefix: cfg.Events.SubjectPrefix,
		MaxReconnects: cfg.Events.MaxReconnects,
		ReconnectWait: secs(cfg.Events.ReconnectWaitSecs),
	}
}

func serverConfig(port int) server.Config {
	if port == 0 {
		port = cfg.Server.Port
	}
	return server.Config{
		Port:            port,
		CORSOrigins:     cfg.Server.CORSOrigins,
		ReadTimeout:     secs(cfg.Server.ReadTimeoutSecs),
		WriteTimeout:    secs(cfg.Server.WriteTimeoutSecs),
		RequestTimeout:  secs(cfg.Server.RequestTimeoutSecs),
		RateLimitRPS:    cfg.Server.RateLimitRPS,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		JWTSecret:       cfg.Auth.JWTSecret,
		DefaultRadiusKm: cfg.Geo.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Geo.MaxRadiusKm,
	}
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
