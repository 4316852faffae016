// Package container wires repositories, infrastructure clients and services
// into the singletons shared by the HTTP server and the CLI.
package container

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/AtRiskMedia/intentstack/internal/application/services"
	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/ai"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/email"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/knowledge"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/analytics"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/database"
	decisionrepo "github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/decision"
	personarepo "github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/persona"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/user"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/transcription"
	"github.com/AtRiskMedia/intentstack/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Pipeline Services
	PersonaService  *services.PersonaService
	EventService    *services.EventService
	TriggerService  *services.TriggerService
	DecisionService *services.DecisionService
	LeadService     *services.LeadService
	SecurityService *services.SecurityService
	AdminService    *services.AdminAuthService
	Assembler       *services.ContextAssembler

	// Repositories exposed to admin handlers
	ActionLogs *decisionrepo.SQLActionLogRepository

	// Infrastructure Dependencies
	DB          *database.DB
	Redis       *goredis.Client
	AIClient    *ai.GeminiClient
	Knowledge   *knowledge.YAMLBase
	ActionHub   *messaging.ActionHub
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
}

// NewContainer opens the store and wires every service from config.
func NewContainer(ctx context.Context, logger *logging.ChanneledLogger) (*Container, error) {
	db, err := database.Open(ctx, database.Options{
		Driver:          config.DatabaseDriver,
		SQLitePath:      config.SQLitePath,
		TursoURL:        config.TursoDatabase,
		TursoToken:      config.TursoToken,
		MaxOpenConns:    config.DBMaxOpenConns,
		MaxIdleConns:    config.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(config.DBConnMaxIdleMinutes) * time.Minute,
	}, logger)
	if err != nil {
		return nil, err
	}

	c := &Container{
		DB:          db,
		Logger:      logger,
		PerfTracker: performance.NewTracker(performance.DefaultTrackerConfig()),
		ActionHub:   messaging.NewActionHub(logger),
	}

	var scoreRepo persona.Repository = personarepo.NewSQLScoreRepository(db, logger)
	if config.RedisAddr != "" {
		rdb, err := personarepo.NewRedisClient(ctx, config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			logger.Startup().Warn("Redis unavailable, persona scores stay in the database", "error", err.Error())
		} else {
			c.Redis = rdb
			scoreRepo = personarepo.NewRedisScoreRepository(rdb, logger)
			logger.Startup().Info("Persona scores backed by redis", "addr", config.RedisAddr)
		}
	}

	eventRepo := analytics.NewSQLEventRepository(db, logger)
	leadRepo := user.NewSQLLeadRepository(db, logger)
	c.ActionLogs = decisionrepo.NewSQLActionLogRepository(db, logger)
	conversationRepo := decisionrepo.NewSQLConversationRepository(db, logger)
	blockRepo := decisionrepo.NewSQLBlockRepository(db, logger)

	c.Knowledge, err = knowledge.NewYAMLBase(config.KnowledgeBasePath, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}

	c.AIClient, err = ai.NewGeminiClient(ctx, ai.Settings{
		APIKey:          config.GeminiAPIKey,
		Model:           config.GeminiModel,
		BaseURL:         config.GeminiBaseURL,
		Timeout:         config.AITimeout,
		Temperature:     config.AITemperature,
		TopK:            config.AITopK,
		TopP:            config.AITopP,
		MaxOutputTokens: config.AIMaxOutputTokens,
	}, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create ai client: %w", err)
	}

	var notifier leads.Notifier
	if n := email.NewResendNotifier(email.Settings{
		APIKey:    config.ResendAPIKey,
		To:        config.LeadNotifyEmail,
		FromEmail: config.EmailFrom,
		FromName:  config.EmailFromName,
		SiteName:  config.SiteName,
	}); n != nil {
		notifier = n
	} else {
		logger.Startup().Warn("Lead notifications disabled, RESEND_API_KEY or LEAD_NOTIFY_EMAIL missing")
	}

	c.PersonaService = services.NewPersonaService(scoreRepo, services.ThresholdsFromConfig(), logger)
	c.SecurityService = services.NewSecurityService(blockRepo, logger)
	c.EventService = services.NewEventService(eventRepo, persona.NewRules(nil), c.PersonaService, c.SecurityService, logger)
	c.LeadService = services.NewLeadService(leadRepo, notifier, services.LeadSettingsFromConfig(), logger)
	c.AdminService = services.NewAdminAuthService(config.AdminPasswordHash, config.JWTSecret, config.AdminTokenTTL, logger)

	commerceProvider := services.NewEventCommerceProvider(eventRepo, leadRepo, 24*time.Hour)
	c.TriggerService = services.NewTriggerService(c.PersonaService, eventRepo, commerceProvider, services.TriggerSettingsFromConfig(), logger)
	c.Assembler = services.NewContextAssembler(services.ContextSources{
		Site:          c.Knowledge,
		Knowledge:     c.Knowledge,
		Events:        eventRepo,
		Commerce:      commerceProvider,
		Personas:      c.PersonaService,
		Conversations: conversationRepo,
		Leads:         leadRepo,
	}, services.ContextSettingsFromConfig(), logger)
	c.DecisionService = services.NewDecisionService(services.DecisionDeps{
		Security:      c.SecurityService,
		Assembler:     c.Assembler,
		Invoker:       c.AIClient,
		Personas:      c.PersonaService,
		Triggers:      c.TriggerService,
		Actions:       c.ActionLogs,
		Conversations: conversationRepo,
		Dispatcher:    c.ActionHub,
		Transcriber:   transcription.NewAssemblyAITranscriber(config.AssemblyAIAPIKey, "", 0, logger),
	}, services.DecisionSettingsFromConfig(), logger)

	return c, nil
}

// Close releases every held connection.
func (c *Container) Close() error {
	var firstErr error
	if c.AIClient != nil {
		c.AIClient.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
