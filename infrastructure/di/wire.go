//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"mindmesh/infrastructure/config"
)

// SuperSet is the full provider graph.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideJWTValidator,
	ProvideMetrics,
	ProvideNoteRepository,
	ProvideMapLibrary,
	ProvideNoteService,
	ProvideMindMapService,
	ProvideNoteHandler,
	ProvideMapHandler,
	ProvideRouter,
	ProvideContainer,
)

// InitializeContainer assembles the application from configuration.
func InitializeContainer(cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
