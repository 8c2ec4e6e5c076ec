package container

import (
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/approval-letters/internal/application/dispatcher"
	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/config"
	infraLark "github.com/garyjia/approval-letters/internal/infrastructure/external/lark"
	"github.com/garyjia/approval-letters/internal/infrastructure/external/openai"
	"github.com/garyjia/approval-letters/internal/infrastructure/persistence/memory"
	"github.com/garyjia/approval-letters/internal/infrastructure/persistence/repository"
	"github.com/garyjia/approval-letters/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/approval-letters/migrations"
	"github.com/garyjia/approval-letters/pkg/database"
	"github.com/garyjia/approval-letters/pkg/utils"
)

// StoreBundle holds the request store and, for sqlite, its connection
type StoreBundle struct {
	Store port.RequestStore
	DB    *database.DB
}

// ProvideStore opens the configured request store. For sqlite it also runs
// pending migrations, from MigrationsDir or the embedded set.
func ProvideStore(cfg *config.DatabaseConfig, logger *zap.Logger) (*StoreBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.Driver == config.DriverMemory {
		logger.Warn("Using the in-memory request store, data is lost on restart")
		return &StoreBundle{Store: memory.NewStore()}, nil
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	var source fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		source = os.DirFS(cfg.MigrationsDir)
	}
	if err := database.NewMigrator(db, logger).Run(source); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store := repository.NewRequestRepository(sqlite.NewDB(db.DB, logger), logger)
	return &StoreBundle{Store: store, DB: db}, nil
}

// ProvideDispatcher creates the event dispatcher
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))),
	)
}

// ProvideSuggester returns nil when suggestions are disabled
func ProvideSuggester(cfg *config.OpenAIConfig, logger *zap.Logger) (port.Suggester, error) {
	if !cfg.Enabled {
		logger.Info("Document content suggestions disabled")
		return nil, nil
	}

	prompts, err := openai.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, err
	}

	return openai.NewSuggester(openai.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}, prompts, logger.Named("openai")), nil
}

// ProvideNotifier returns nil when Lark is not configured
func ProvideNotifier(cfg *config.LarkConfig, logger *zap.Logger) port.Notifier {
	if !cfg.Enabled() {
		logger.Info("Lark notifications disabled")
		return nil
	}

	larkCfg := infraLark.Config{
		AppID:           cfg.AppID,
		AppSecret:       cfg.AppSecret,
		AdminChatID:     cfg.AdminChatID,
		NotifySubmitter: cfg.NotifySubmitter,
	}
	client := infraLark.NewClient(larkCfg, logger.Named("lark"))
	return infraLark.NewNotifier(client, larkCfg, logger.Named("lark"))
}
