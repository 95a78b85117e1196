// Package mocks provides gomock-generated mocks for the core ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for the SCMClient interface from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=scm_client_mock.go github.com/target/backport-bot/internal/core SCMClient

// Generate mock for the BackportRunner interface from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=backport_runner_mock.go github.com/target/backport-bot/internal/core BackportRunner
