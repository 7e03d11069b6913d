// Package di assembles the application with google/wire. Providers are
// hand-written here; the generated injector lives in wire_gen.go.
package di

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mindmesh/application/ports"
	"mindmesh/application/services"
	domaincfg "mindmesh/domain/config"
	"mindmesh/infrastructure/config"
	dynamostore "mindmesh/infrastructure/persistence/dynamodb"
	"mindmesh/infrastructure/persistence/memory"
	"mindmesh/infrastructure/persistence/sqlite"
	"mindmesh/interfaces/http/rest"
	"mindmesh/interfaces/http/rest/handlers"
	"mindmesh/pkg/auth"
	"mindmesh/pkg/observability"
)

// Container holds the fully assembled application.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	Router *rest.Router
}

// ProvideLogger builds the zap logger for the configured environment.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.Server.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

// ProvideDomainConfig returns the product's business rules.
func ProvideDomainConfig() *domaincfg.DomainConfig {
	return domaincfg.DefaultDomainConfig()
}

// ProvideJWTValidator builds the token validator.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.Auth.JWTIssuer,
		Audience:  []string{cfg.Auth.JWTAudience},
	})
}

// ProvideMetrics builds the Prometheus collectors.
func ProvideMetrics() *observability.Metrics {
	return observability.NewMetrics()
}

func newDynamoClient(cfg *config.Config) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = &cfg.AWS.Endpoint
		}
	}), nil
}

// ProvideNoteRepository selects the note persistence driver.
func ProvideNoteRepository(cfg *config.Config, logger *zap.Logger) (ports.NoteRepository, error) {
	switch cfg.Storage.NoteDriver {
	case "dynamodb":
		client, err := newDynamoClient(cfg)
		if err != nil {
			return nil, err
		}
		return dynamostore.NewNoteRepository(client, cfg.AWS.DynamoDBTable, logger), nil
	default:
		return memory.NewNoteRepository(), nil
	}
}

// ProvideMapLibrary selects the saved-map persistence driver. The cleanup
// closes the SQLite handle on shutdown.
func ProvideMapLibrary(cfg *config.Config, logger *zap.Logger) (ports.MapLibrary, func(), error) {
	switch cfg.Storage.MapLibraryDriver {
	case "dynamodb":
		client, err := newDynamoClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return dynamostore.NewMapLibrary(client, cfg.AWS.DynamoDBTable, logger), func() {}, nil
	default:
		lib, err := sqlite.NewMapLibrary(cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return lib, func() { lib.Close() }, nil
	}
}

// ProvideNoteService builds the note store.
func ProvideNoteService(repo ports.NoteRepository, logger *zap.Logger) *services.NoteService {
	return services.NewNoteService(repo, logger)
}

// ProvideMindMapService builds the graph editor state.
func ProvideMindMapService(library ports.MapLibrary, dcfg *domaincfg.DomainConfig, logger *zap.Logger) *services.MindMapService {
	return services.NewMindMapService(library, dcfg, logger)
}

// ProvideNoteHandler builds the note REST handler.
func ProvideNoteHandler(notes *services.NoteService, logger *zap.Logger) *handlers.NoteHandler {
	return handlers.NewNoteHandler(notes, logger)
}

// ProvideMapHandler builds the map REST handler.
func ProvideMapHandler(maps *services.MindMapService, logger *zap.Logger) *handlers.MapHandler {
	return handlers.NewMapHandler(maps, logger)
}

// ProvideRouter builds the HTTP router.
func ProvideRouter(
	cfg *config.Config,
	notes *handlers.NoteHandler,
	maps *handlers.MapHandler,
	validator *auth.JWTValidator,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(cfg, notes, maps, validator, metrics, logger)
}

// ProvideContainer bundles the assembled pieces.
func ProvideContainer(cfg *config.Config, logger *zap.Logger, router *rest.Router) *Container {
	return &Container{
		Config: cfg,
		Logger: logger,
		Router: router,
	}
}
