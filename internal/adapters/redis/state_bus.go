package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/ports"
)

var _ ports.StateBus = (*StateBus)(nil)

// StateBus publishes auth state changes over Redis Pub/Sub so every gateway
// replica watching a session sees sign-in, sign-out and role changes.
type StateBus struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// StateBusOptions configures a StateBus.
type StateBusOptions struct {
	Client redis.UniversalClient
	Prefix string // default "authstate:"
	Logger *slog.Logger
}

// NewStateBus creates a Pub/Sub backed StateBus.
func NewStateBus(opts StateBusOptions) *StateBus {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "authstate:"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StateBus{client: opts.Client, prefix: prefix, logger: logger.With("component", "state_bus")}
}

func (b *StateBus) channel(sessionID string) string { return b.prefix + sessionID }

// Publish sends state to all subscribers of sessionID.
func (b *StateBus) Publish(ctx context.Context, sessionID string, state domainauth.AuthState) error {
	if sessionID == "" {
		return errors.New("session ID is required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal auth state: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(sessionID), data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe listens for states published for sessionID. Only the most recent
// undelivered state is kept when the consumer falls behind. The subscription
// ends when cancel is called or ctx is done.
func (b *StateBus) Subscribe(ctx context.Context, sessionID string) (<-chan domainauth.AuthState, func(), error) {
	if sessionID == "" {
		return nil, nil, errors.New("session ID is required")
	}
	ps := b.client.Subscribe(ctx, b.channel(sessionID))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan domainauth.AuthState, 1)
	msgs := ps.Channel()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if err := ps.Close(); err != nil {
				b.logger.Debug("close pubsub", "error", err)
			}
		})
	}

	stop := context.AfterFunc(ctx, cancel)

	go func() {
		defer close(out)
		defer stop()
		for msg := range msgs {
			var st domainauth.AuthState
			if err := json.Unmarshal([]byte(msg.Payload), &st); err != nil {
				b.logger.Warn("drop malformed auth state", "channel", msg.Channel, "error", err)
				continue
			}
			offerLatest(out, st)
		}
	}()
	return out, cancel, nil
}

// offerLatest replaces any pending value so the receiver always sees the newest state.
func offerLatest(ch chan domainauth.AuthState, st domainauth.AuthState) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
