// Package mocks provides gomock implementations of the storefront-gate ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	profiles := mocks.NewMockProfileStore(ctrl)
//	profiles.EXPECT().Get(gomock.Any(), "u1").Return(profile, nil)
package mocks

// Generate mock for ProfileStore interface from internal/ports package.
// This creates MockProfileStore with methods Get, Upsert, SetRole.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_store_mock.go github.com/target/storefront-gate/internal/ports ProfileStore

// Generate mock for TokenVerifier interface from internal/ports package.
// This creates MockTokenVerifier with method Verify.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_verifier_mock.go github.com/target/storefront-gate/internal/ports TokenVerifier
