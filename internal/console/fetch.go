package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a single upstream call.
const DefaultFetchTimeout = 15 * time.Second

// Credentials resolves the bearer token and role before every privileged
// call. An empty token with a nil error means the user is not signed in.
type Credentials interface {
	Credentials(ctx context.Context) (token string, role Role, err error)
}

// CredentialsFunc adapts a function to Credentials.
type CredentialsFunc func(ctx context.Context) (string, Role, error)

// Credentials implements Credentials.
func (f CredentialsFunc) Credentials(ctx context.Context) (string, Role, error) {
	return f(ctx)
}

// StaticCredentials always returns the same token and role.
func StaticCredentials(token string, role Role) Credentials {
	return CredentialsFunc(func(context.Context) (string, Role, error) {
		return token, role, nil
	})
}

// Fetch outcomes recorded in metrics.
const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeRejected  = "rejected"
	outcomeCancelled = "cancelled"
	outcomeDiscarded = "discarded"
)

var errNoAPI = errors.New("api client not configured")

// Fetcher runs the shared fetch routine for every domain against one store.
type Fetcher struct {
	registry *Registry
	store    *Store
	api      API
	creds    Credentials
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *Metrics
}

// FetcherConfig collects the Fetcher dependencies.
type FetcherConfig struct {
	Registry    *Registry
	Store       *Store
	API         API
	Credentials Credentials
	Timeout     time.Duration
	Logger      *slog.Logger
	Metrics     *Metrics
}

// NewFetcher wires a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry(nil)
	}
	if cfg.Store == nil {
		cfg.Store = NewStore()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Credentials == nil {
		cfg.Credentials = StaticCredentials("", "")
	}
	return &Fetcher{
		registry: cfg.Registry,
		store:    cfg.Store,
		api:      cfg.API,
		creds:    cfg.Credentials,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Fetch loads the domain and writes the outcome into the store. The store is
// the contract; the returned error only reports what happened, and results
// superseded by a newer fetch are dropped silently.
func (f *Fetcher) Fetch(ctx context.Context, id DomainID, params Params) error {
	entry, err := f.registry.Lookup(id)
	if err != nil {
		return err
	}
	logger := f.logger.With(slog.String("domain", string(id)))

	var token string
	if !entry.Public {
		var role Role
		token, role, err = f.creds.Credentials(ctx)
		if err != nil {
			err = fmt.Errorf("resolve credentials: %w", err)
			f.store.Reject(id, err.Error())
			f.metrics.recordFetch(id, outcomeRejected, 0)
			logger.Warn("credentials lookup failed", slog.Any("error", err))
			return err
		}
		if token == "" {
			f.store.Reject(id, ErrAuthMissing.Error())
			f.metrics.recordFetch(id, outcomeRejected, 0)
			return ErrAuthMissing
		}
		if !entry.Allows(role) {
			err = fmt.Errorf("%w: %s requires one of %s", ErrAccessDenied, id, joinRoles(entry.Roles))
			f.store.Reject(id, err.Error())
			f.metrics.recordFetch(id, outcomeRejected, 0)
			logger.Info("fetch denied", slog.String("role", string(role)))
			return err
		}
		params.Role = role
	}

	gen := f.store.Begin(id)

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	var data any
	if f.api == nil {
		err = errNoAPI
	} else {
		data, err = entry.Load(callCtx, f.api, token, params)
	}
	took := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			// The owner went away; nobody is waiting for a banner.
			f.store.Cancel(id, gen)
			f.metrics.recordFetch(id, outcomeCancelled, took)
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("request timed out after %s: %w", f.timeout, err)
		}
		if !f.store.Fail(id, gen, entry.EmptyDefault(), err.Error()) {
			f.metrics.recordDiscard(id)
			f.metrics.recordFetch(id, outcomeDiscarded, took)
			return nil
		}
		f.metrics.recordFetch(id, outcomeFailure, took)
		logger.Warn("fetch failed", slog.Any("error", err), slog.Duration("took", took))
		return err
	}

	if !f.store.Succeed(id, gen, data) {
		f.metrics.recordDiscard(id)
		f.metrics.recordFetch(id, outcomeDiscarded, took)
		logger.Debug("stale fetch discarded", slog.Uint64("generation", gen))
		return nil
	}
	f.metrics.recordFetch(id, outcomeSuccess, took)
	logger.Debug("fetch complete", slog.Duration("took", took))
	return nil
}

// Store exposes the store the fetcher writes to.
func (f *Fetcher) Store() *Store {
	return f.store
}

// Registry exposes the domain table.
func (f *Fetcher) Registry() *Registry {
	return f.registry
}

func joinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
