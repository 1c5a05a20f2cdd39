// Package mocks provides gomock implementations of the internal/core ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockJourneyRepository(ctrl)
//	repo.EXPECT().GetSettings(gomock.Any(), "journey-1").Return(settings, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=customer_event_repository_mock.go github.com/target/engage-api/internal/core CustomerEventRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=customer_repository_mock.go github.com/target/engage-api/internal/core CustomerRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=workspace_repository_mock.go github.com/target/engage-api/internal/core WorkspaceRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=journey_repository_mock.go github.com/target/engage-api/internal/core JourneyRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=enrollment_repository_mock.go github.com/target/engage-api/internal/core EnrollmentRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=conversion_repository_mock.go github.com/target/engage-api/internal/core ConversionRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/engage-api/internal/core CacheRepository
