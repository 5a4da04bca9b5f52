package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/openclaw/clawbot/internal/assistant"
	"github.com/openclaw/clawbot/internal/cache"
	"github.com/openclaw/clawbot/internal/config"
	"github.com/openclaw/clawbot/internal/handler"
	"github.com/openclaw/clawbot/internal/history"
	"github.com/openclaw/clawbot/internal/metrics"
	"github.com/openclaw/clawbot/internal/provider"
	"github.com/openclaw/clawbot/internal/security"
	"github.com/openclaw/clawbot/internal/skill"
	"github.com/openclaw/clawbot/internal/skill/builtin"
	"github.com/openclaw/clawbot/internal/whatsapp"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting OpenClaw...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/clawbot.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize provider
	provCfg, err := cfg.Provider(cfg.Assistant.ProviderID)
	if err != nil {
		logger.Fatal("provider selection failed", zap.Error(err))
	}
	prov, err := provider.New(provider.Config{
		ID: provCfg.ID, Type: provCfg.Type, Name: provCfg.Name,
		Endpoint: provCfg.Endpoint, APIKey: provCfg.APIKey,
		Model: provCfg.Model, Extra: provCfg.Extra,
	}, logger)
	if err != nil {
		logger.Fatal("provider init failed", zap.Error(err))
	}
	if err := prov.HealthCheck(context.Background()); err != nil {
		logger.Warn("provider health check failed", zap.Error(err))
	}

	// Register skills
	registry := skill.NewRegistry(logger)
	skills := []*skill.Skill{builtin.NewDateSkill()}
	if cfg.Skills.WebSearch {
		skills = append(skills, builtin.NewWebSearchSkill(logger))
	}
	if cfg.Skills.FileManager {
		skills = append(skills, builtin.NewFileSkill(cfg.Skills.FileBaseDir, logger))
	}
	if cfg.Skills.TerminalCommand {
		skills = append(skills, builtin.NewCommandSkill(logger))
	}
	if cfg.Skills.Notion {
		skills = append(skills, builtin.NewNotionSkill(cfg.Skills.NotionAPIKey, logger))
	}
	if cfg.Skills.GoogleCalendar {
		skills = append(skills, builtin.NewCalendarSkill(builtin.CalendarConfig{
			ClientID:     cfg.Skills.Google.ClientID,
			ClientSecret: cfg.Skills.Google.ClientSecret,
			RedirectURI:  cfg.Skills.Google.RedirectURI,
			RefreshToken: cfg.Skills.Google.RefreshToken,
		}, logger))
	}
	if err := registry.RegisterAll(skills...); err != nil {
		logger.Fatal("skill registration failed", zap.Error(err))
	}
	logger.Info("Skills registered", zap.Int("count", registry.Len()))

	// Initialize response cache
	var respCache cache.Cache
	switch cfg.Cache.Driver {
	case "redis":
		respCache, err = cache.NewRedisCache(cfg.Cache.URL, logger)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
			respCache = cache.NewMemoryCache()
		}
	default:
		respCache = cache.NewMemoryCache()
	}
	defer respCache.Close()

	// Initialize history store
	var store history.Store
	switch cfg.History.Driver {
	case "sqlite":
		store, err = history.NewSQLiteStore(cfg.History.Path, cfg.History.MaxMessages, logger)
		if err != nil {
			logger.Fatal("sqlite history init failed", zap.Error(err))
		}
	case "postgres":
		store, err = history.NewPostgresStore(context.Background(), cfg.History.DSN, cfg.History.MaxMessages, logger)
		if err != nil {
			logger.Fatal("postgres history init failed", zap.Error(err))
		}
	default:
		store = history.NewMemoryStore(cfg.History.MaxMessages, logger)
	}
	defer store.Close()

	// Initialize responder
	responder := assistant.New(prov, registry, respCache, assistant.Options{
		SystemPrompt:  cfg.Assistant.SystemPrompt,
		Temperature:   cfg.Assistant.Temperature,
		MaxAttempts:   cfg.Assistant.MaxAttempts,
		MaxToolRounds: cfg.Assistant.MaxToolRounds,
		CacheTTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
	}, logger)

	mets := metrics.New()
	responder.SetRecorder(mets)

	// Initialize WhatsApp transport
	var client whatsapp.Client
	switch cfg.WhatsApp.Mode {
	case "whatsmeow":
		client, err = whatsapp.NewMeowClient(cfg.WhatsApp.DBPath, logger)
		if err != nil {
			logger.Fatal("whatsmeow init failed", zap.Error(err))
		}
	default:
		client = whatsapp.NewWahaClient(whatsapp.WahaConfig{
			BaseURL:     cfg.WhatsApp.WahaURL,
			APIKey:      cfg.WhatsApp.WahaAPIKey,
			Session:     cfg.WhatsApp.WahaSession,
			WebhookPort: cfg.WhatsApp.WebhookPort,
		}, logger)
	}

	allowlist := security.NewAllowlist(cfg.Security.Whitelist, logger)
	h := handler.New(client, responder, store, allowlist, handler.Options{
		AudioResponse: cfg.Assistant.AudioResponse,
		HistoryLimit:  cfg.History.MaxMessages,
	}, logger)
	client.OnMessage(h.Handle)

	if err := client.Connect(context.Background()); err != nil {
		logger.Fatal("WhatsApp connect failed", zap.Error(err))
	}

	// Metrics server
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: mets.Handler(),
	}
	go func() {
		logger.Info("metrics listening", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	logger.Info("OpenClaw ready")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown error", zap.Error(err))
	}
	if err := client.Disconnect(); err != nil {
		logger.Warn("WhatsApp disconnect error", zap.Error(err))
	}
	logger.Info("Goodbye")
}
