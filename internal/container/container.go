// Package container provides dependency wiring and lifecycle management.
package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/approval-letters/internal/application/dispatcher"
	"github.com/garyjia/approval-letters/internal/application/feed"
	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/application/service"
	"github.com/garyjia/approval-letters/internal/config"
	httpapi "github.com/garyjia/approval-letters/internal/interfaces/http"
	"github.com/garyjia/approval-letters/internal/letter"
	"github.com/garyjia/approval-letters/pkg/database"
	"github.com/garyjia/approval-letters/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	db    *database.DB
	store port.RequestStore

	// Application
	dispatcher dispatcher.Dispatcher
	feed       *feed.Hub
	services   *ServiceBundle
	tokens     *httpapi.TokenService

	// Interfaces
	server *httpapi.Server

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Requests      service.RequestService
	Letters       service.LetterService
	Suggestions   service.SuggestionService
	Notifications service.NotificationService // nil when notifications are off
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Request store (and migrations)
// 2. Event dispatcher
// 3. External adapters and application services
// 4. Live feed hub
// 5. HTTP server
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	// Step 1: request store
	stores, err := ProvideStore(&c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	c.db = stores.DB
	c.store = stores.Store
	c.logger.Info("Request store initialized", zap.String("driver", c.config.Database.Driver))

	// Step 2: dispatcher
	c.dispatcher = ProvideDispatcher(c.logger)

	// Step 3: adapters and services
	if err := c.initServices(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 4: feed hub
	c.feed = feed.NewHub(c.store, utils.NewKVLogger(c.logger.Named("feed")),
		feed.WithBuffer(c.config.Feed.Buffer))
	c.feed.Register(c.dispatcher)

	// Step 5: HTTP server
	c.tokens = httpapi.NewTokenService(c.config.Auth.JWTSecret, c.config.Auth.Issuer, c.config.Auth.TokenTTL)
	c.server = httpapi.NewServer(httpapi.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            c.config.Server.Port,
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		AllowedOrigins:  c.config.Server.AllowedOrigins,
		Heartbeat:       c.config.Feed.Heartbeat,
	}, httpapi.Dependencies{
		Requests:    c.services.Requests,
		Letters:     c.services.Letters,
		Suggestions: c.services.Suggestions,
		Feed:        c.feed,
		Tokens:      c.tokens,
	}, utils.NewKVLogger(c.logger.Named("http")))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) initServices() error {
	suggester, err := ProvideSuggester(&c.config.OpenAI, c.logger)
	if err != nil {
		return err
	}
	notifier := ProvideNotifier(&c.config.Lark, c.logger)

	serviceLogger := utils.NewKVLogger(c.logger.Named("service"))
	requests := service.NewRequestService(c.store, c.dispatcher, serviceLogger)

	renderer := letter.NewExcelRenderer(c.logger.Named("letter"))

	c.services = &ServiceBundle{
		Requests:    requests,
		Letters:     service.NewLetterService(requests, renderer, c.config.Letter, serviceLogger),
		Suggestions: service.NewSuggestionService(suggester, serviceLogger),
	}

	if notifier != nil {
		c.services.Notifications = service.NewNotificationService(c.store, notifier, serviceLogger)
		c.services.Notifications.Register(c.dispatcher)
	}
	return nil
}

// Close gracefully shuts down all components in reverse order.
// Stop the HTTP server first so no new transitions are accepted.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) teardown() []error {
	var errs []error

	// feed subscribers end before the events that drive them
	if c.feed != nil {
		if err := c.feed.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close feed: %w", err))
		}
	}

	// waits for in-flight async handlers such as notifications
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Server returns the HTTP server, or nil before Start.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Services returns the application services, or nil before Start.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Tokens returns the bearer token service, or nil before Start.
func (c *Container) Tokens() *httpapi.TokenService {
	return c.tokens
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	switch {
	case c.store == nil:
		set("store", ComponentHealth{Message: "not initialized"})
	case c.db != nil:
		if err := c.db.PingContext(ctx); err != nil {
			set("store", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("store", ComponentHealth{Healthy: true, Message: config.DriverSQLite})
		}
	default:
		set("store", ComponentHealth{Healthy: true, Message: config.DriverMemory})
	}

	if c.dispatcher != nil {
		set("dispatcher", ComponentHealth{Healthy: true})
	} else {
		set("dispatcher", ComponentHealth{Message: "not initialized"})
	}

	if c.feed != nil {
		set("feed", ComponentHealth{Healthy: true, Message: fmt.Sprintf("subscribers: %d", c.feed.Subscribers())})
	} else {
		set("feed", ComponentHealth{Message: "not initialized"})
	}

	return status
}
