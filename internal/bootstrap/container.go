package bootstrap

import (
	"context"
	"errors"

	"feedme-console/internal/api"
	"feedme-console/internal/auth"
	"feedme-console/internal/bus"
	"feedme-console/internal/config"
	"feedme-console/internal/notify"
	"feedme-console/internal/pkg/logger"
	"feedme-console/internal/prefs"
	"feedme-console/internal/realtime"
	"feedme-console/internal/store"
)

// Container is the composition root: it owns the bus and wires every store,
// the realtime manager and the notification queue together. Cross-component
// access goes through the handles here, never through package globals.
type Container struct {
	Logger        logger.ILogger
	Events        *bus.Bus
	API           api.Client
	Notifications *notify.Queue
	Conversations *store.ConversationStore
	Search        *store.SearchDebouncer
	Folders       *store.FolderStore
	Processing    *realtime.Tracker
	Realtime      *realtime.Manager
	Prefs         *prefs.Store

	rtLogger logger.ILogger
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	events := bus.New(sysLogger)

	// 3. Backend client
	tokens := auth.NewStaticTokenSource(cfg.API.Token, sysLogger)
	apiClient := api.NewHTTPClient(cfg.API.BaseURL, tokens, cfg.API.Timeout, cfg.API.MaxRetries)

	// 4. Domain stores
	conversations := store.NewConversationStore(apiClient, events, sysLogger, cfg.Cache.ListTTL, cfg.Cache.DetailTTL, cfg.Store.BulkChunkSize)
	search := store.NewSearchDebouncer(conversations, cfg.Store.SearchDebounce, sysLogger)
	folders := store.NewFolderStore(apiClient, events, sysLogger, cfg.Cache.ListTTL)

	// 5. Realtime. Heartbeats and reconnects log on every tick, so they get
	// a file-only logger and stay out of the console output.
	rtLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)
	tracker := realtime.NewTracker(cfg.Realtime.ProcessingRetention)
	manager := realtime.NewManager(cfg.Realtime, cfg.RealtimeURL(), tokens, events, tracker, rtLogger, nil)

	// 6. Notifications
	notifications := notify.NewQueue(events, sysLogger)

	// 7. Persisted preferences
	prefStore, err := prefs.NewStore(cfg.Prefs.DBPath)
	if err != nil {
		return nil, err
	}

	return &Container{
		Logger:        sysLogger,
		Events:        events,
		API:           apiClient,
		Notifications: notifications,
		Conversations: conversations,
		Search:        search,
		Folders:       folders,
		Processing:    tracker,
		Realtime:      manager,
		Prefs:         prefStore,
		rtLogger:      rtLogger,
	}, nil
}

// Start brings the bus subscribers up and, when enabled, opens the realtime
// connection. Subscriptions must be live before the first connect so no
// server-pushed event is lost.
func (c *Container) Start(ctx context.Context) error {
	if err := c.Notifications.Start(ctx); err != nil {
		return err
	}
	if err := c.Conversations.Start(ctx); err != nil {
		return err
	}
	if err := c.Folders.Start(ctx); err != nil {
		return err
	}

	if err := c.Realtime.Connect(ctx); err != nil && !errors.Is(err, realtime.ErrRealtimeDisabled) {
		// Non-fatal: the scheduler keeps retrying, and the console works
		// without live updates.
		c.Logger.Warn("Bootstrap", "Initial realtime connect failed", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// Close tears everything down in reverse order.
func (c *Container) Close() {
	c.Search.Close()
	c.Realtime.Close()
	c.Processing.Close()
	c.Notifications.Close()
	if err := c.Prefs.Close(); err != nil {
		c.Logger.Warn("Bootstrap", "Closing preference store failed", map[string]interface{}{"error": err.Error()})
	}
	if err := c.Events.Close(); err != nil {
		c.Logger.Warn("Bootstrap", "Closing event bus failed", map[string]interface{}{"error": err.Error()})
	}
	if c.rtLogger != nil {
		_ = c.rtLogger.Sync()
	}
	_ = c.Logger.Sync()
}
