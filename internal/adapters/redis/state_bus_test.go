package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/testutil"
)

func receive(t *testing.T, ch <-chan domainauth.AuthState) domainauth.AuthState {
	t.Helper()
	select {
	case st, ok := <-ch:
		require.True(t, ok, "channel closed")
		return st
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for auth state")
		return domainauth.AuthState{}
	}
}

func TestStateBus_PublishSubscribe(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	bus := NewStateBus(StateBusOptions{Client: client})
	ctx := context.Background()

	ch, cancel, err := bus.Subscribe(ctx, "s-1")
	require.NoError(t, err)
	defer cancel()

	want := domainauth.SignedIn(&domainauth.Profile{UserID: "u1", Role: domainauth.RoleManager})
	require.NoError(t, bus.Publish(ctx, "s-1", want))
	assert.True(t, want.Equal(receive(t, ch)))

	// other sessions are not delivered
	require.NoError(t, bus.Publish(ctx, "s-2", domainauth.Pending()))
	require.NoError(t, bus.Publish(ctx, "s-1", domainauth.SignedOut()))
	assert.True(t, domainauth.SignedOut().Equal(receive(t, ch)))
}

func TestStateBus_CancelClosesChannel(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	bus := NewStateBus(StateBusOptions{Client: client, Prefix: "test-authstate:"})
	ctx, stop := context.WithCancel(context.Background())

	ch, _, err := bus.Subscribe(ctx, "s-1")
	require.NoError(t, err)
	stop()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("subscription did not end with its context")
	}
}

func TestStateBus_RequiresSessionID(t *testing.T) {
	bus := NewStateBus(StateBusOptions{})
	ctx := context.Background()

	assert.Error(t, bus.Publish(ctx, "", domainauth.SignedOut()))
	_, _, err := bus.Subscribe(ctx, "")
	assert.Error(t, err)
}

func TestOfferLatestKeepsNewest(t *testing.T) {
	ch := make(chan domainauth.AuthState, 1)
	offerLatest(ch, domainauth.Pending())
	offerLatest(ch, domainauth.SignedOut())
	assert.True(t, domainauth.SignedOut().Equal(<-ch))
}
