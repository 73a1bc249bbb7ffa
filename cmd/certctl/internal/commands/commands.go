package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"certregistry/config"
	"certregistry/registry"
	"certregistry/store/memory"
	redisstore "certregistry/store/redis"
)

// Globals carries the flags shared by every command.
type Globals struct {
	As       string
	RedisURL string
	Prefix   string
	Version  string

	// Out receives command output; stdout when nil.
	Out io.Writer
	// Store overrides the backend selected by RedisURL.
	Store registry.Store
}

// localAuth trusts the identity given on the command line. It exists for
// exercising the registry outside a network that authenticates callers.
type localAuth struct {
	caller string
}

func (a localAuth) RequireAuth(_ context.Context, identity string) error {
	if a.caller == "" {
		return fmt.Errorf("no --as identity given: %w", registry.ErrUnauthorized)
	}
	if a.caller != identity {
		return fmt.Errorf("'%s' cannot act as '%s': %w", a.caller, identity, registry.ErrUnauthorized)
	}
	return nil
}

func wallClock(context.Context) (uint64, error) {
	return uint64(time.Now().Unix()), nil
}

// open builds a registry over the selected backend. The returned func
// releases the backend.
func (g *Globals) open(ctx context.Context) (*registry.Registry, func(), error) {
	retention, err := config.RetentionFromEnv()
	if err != nil {
		return nil, nil, err
	}

	store := g.Store
	closer := func() {}
	if store == nil {
		if g.RedisURL == "" {
			logger.Warning("No --redis-url given; using an in-memory store that lives for this invocation only")
			store = memory.NewStore()
		} else {
			client, err := redisstore.Connect(ctx, g.RedisURL)
			if err != nil {
				return nil, nil, err
			}
			store = redisstore.NewStore(client, g.Prefix)
			closer = func() { client.Close() }
		}
	}

	reg := registry.New(store, localAuth{caller: g.As}, registry.ClockFunc(wallClock), registry.WithRetention(retention))
	return reg, closer, nil
}

func (g *Globals) print(v interface{}) error {
	out := g.Out
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
