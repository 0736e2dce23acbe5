package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	gomockmocks "github.com/target/storefront-gate/internal/mocks"
	mocks "github.com/target/storefront-gate/internal/mocks/auth"
)

func TestProfileService_LoadWithoutStoreUsesFallback(t *testing.T) {
	svc := NewProfileService(ProfileServiceOptions{})
	fallback := &domainauth.Profile{UserID: "u-1", Role: domainauth.RoleManager}

	got, err := svc.Load(context.Background(), "u-1", fallback)

	require.NoError(t, err)
	assert.Same(t, fallback, got)
	assert.False(t, svc.Enabled())
}

func TestProfileService_LoadFromStore(t *testing.T) {
	store := mocks.NewMemoryProfileStore()
	_, err := store.Upsert(context.Background(), domainauth.Profile{UserID: "u-1", Role: domainauth.RoleAdmin})
	require.NoError(t, err)

	svc := NewProfileService(ProfileServiceOptions{Store: store})
	got, err := svc.Load(context.Background(), "u-1", &domainauth.Profile{Role: domainauth.RoleCustomer})

	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, got.Role)
	assert.True(t, svc.Enabled())
}

func TestProfileService_LoadErrors(t *testing.T) {
	store := mocks.NewMemoryProfileStore()
	svc := NewProfileService(ProfileServiceOptions{Store: store})

	_, err := svc.Load(context.Background(), "", nil)
	require.Error(t, err)

	store.GetErr = errors.New("db down")
	_, err = svc.Load(context.Background(), "u-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load profile")
}

func TestProfileService_LoadMissingRowUsesFallback(t *testing.T) {
	svc := NewProfileService(ProfileServiceOptions{Store: mocks.NewMemoryProfileStore()})
	fallback := &domainauth.Profile{UserID: "api-1", Role: domainauth.RoleAdmin}

	got, err := svc.Load(context.Background(), "api-1", fallback)

	require.NoError(t, err)
	assert.Same(t, fallback, got)
}

func TestProfileService_LoadSurvivesCancelledPeer(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := gomockmocks.NewMockProfileStore(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	store.EXPECT().
		Get(gomock.Any(), "u-1").
		DoAndReturn(func(ctx context.Context, _ string) (*domainauth.Profile, error) {
			close(started)
			select {
			case <-release:
				return &domainauth.Profile{UserID: "u-1", Role: domainauth.RoleManager}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}).
		Times(1)

	svc := NewProfileService(ProfileServiceOptions{Store: store})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Load(firstCtx, "u-1", nil)
		firstErr <- err
	}()
	<-started

	type result struct {
		p   *domainauth.Profile
		err error
	}
	second := make(chan result, 1)
	go func() {
		p, err := svc.Load(context.Background(), "u-1", nil)
		second <- result{p, err}
	}()

	// give the second caller time to join the in-flight lookup
	time.Sleep(50 * time.Millisecond)
	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	require.NotNil(t, got.p)
	assert.Equal(t, domainauth.RoleManager, got.p.Role)
}

func TestProfileService_LoadSharesConcurrentCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := gomockmocks.NewMockProfileStore(ctrl)

	release := make(chan struct{})
	var calls atomic.Int32
	store.EXPECT().
		Get(gomock.Any(), "u-1").
		DoAndReturn(func(context.Context, string) (*domainauth.Profile, error) {
			calls.Add(1)
			<-release
			return &domainauth.Profile{UserID: "u-1", Role: domainauth.RoleManager}, nil
		}).
		AnyTimes()

	svc := NewProfileService(ProfileServiceOptions{Store: store})

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*domainauth.Profile, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := svc.Load(context.Background(), "u-1", nil)
			assert.NoError(t, err)
			results[i] = p
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Less(t, int(calls.Load()), callers)
	for _, p := range results {
		require.NotNil(t, p)
		assert.Equal(t, domainauth.RoleManager, p.Role)
	}
	// each caller owns its copy
	results[0].Role = domainauth.RoleCustomer
	assert.Equal(t, domainauth.RoleManager, results[1].Role)
}

func TestProfileService_Record(t *testing.T) {
	t.Run("without store echoes input", func(t *testing.T) {
		svc := NewProfileService(ProfileServiceOptions{})
		got, err := svc.Record(context.Background(), domainauth.Profile{UserID: "u-1", Role: domainauth.RoleCustomer})
		require.NoError(t, err)
		assert.Equal(t, "u-1", got.UserID)
	})

	t.Run("with store upserts", func(t *testing.T) {
		store := mocks.NewMemoryProfileStore()
		svc := NewProfileService(ProfileServiceOptions{Store: store})

		_, err := svc.Record(context.Background(), domainauth.Profile{UserID: "u-1", Role: domainauth.RoleCustomer})
		require.NoError(t, err)

		got, err := store.Get(context.Background(), "u-1")
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleCustomer, got.Role)
	})
}

func TestProfileService_SetRole(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		_, err := NewProfileService(ProfileServiceOptions{}).SetRole(ctx, "u-1", "admin")
		require.ErrorIs(t, err, ErrProfilesDisabled)
	})

	t.Run("normalises role", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := gomockmocks.NewMockProfileStore(ctrl)
		store.EXPECT().
			SetRole(gomock.Any(), "u-1", domainauth.RoleManager).
			Return(&domainauth.Profile{UserID: "u-1", Role: domainauth.RoleManager}, nil)

		got, err := NewProfileService(ProfileServiceOptions{Store: store}).SetRole(ctx, " u-1 ", " Manager ")

		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleManager, got.Role)
	})

	t.Run("requires user and role", func(t *testing.T) {
		svc := NewProfileService(ProfileServiceOptions{Store: mocks.NewMemoryProfileStore()})
		_, err := svc.SetRole(ctx, "", "admin")
		require.Error(t, err)
		_, err = svc.SetRole(ctx, "u-1", "  ")
		require.Error(t, err)
	})

	t.Run("store error", func(t *testing.T) {
		svc := NewProfileService(ProfileServiceOptions{Store: mocks.NewMemoryProfileStore()})
		_, err := svc.SetRole(ctx, "nobody", "admin")
		require.ErrorIs(t, err, mocks.ErrNotFound)
	})
}
