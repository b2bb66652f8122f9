package bootstrap

import (
	"context"
	"log"
	"strings"

	"ai-topic-notes/internal/cache"
	"ai-topic-notes/internal/config"
	"ai-topic-notes/internal/controller"
	"ai-topic-notes/internal/pkg/logger"
	"ai-topic-notes/internal/repository/unitofwork"
	"ai-topic-notes/internal/service"
	"ai-topic-notes/internal/session"
	"ai-topic-notes/internal/store"
	"ai-topic-notes/pkg/llm/factory"

	pktNats "ai-topic-notes/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ConversationController controller.IConversationController
	SessionController      controller.ISessionController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	Invalidator     *cache.RedisInvalidator

	Session *session.Controller
	Logger  logger.ILogger

	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
	rdb     *redis.Client
}

// NewContainer wires the application. A nil db runs on the in-memory store,
// which only STORE_DRIVER=memory and tests ask for.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	cacheLogger := logger.NewIsolatedLogger(cfg.App.CacheLogFilePath)

	var st store.Store
	if db != nil {
		st = store.NewGormStore(unitofwork.NewRepositoryFactory(db))
		log.Printf("[INFO] Using Store: %s", strings.ToUpper(cfg.Database.ResolvedDriver()))
	} else {
		st = store.NewMemoryStore()
		log.Println("[INFO] Using Store: MEMORY (nothing is persisted)")
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Infrastructure
	// NATS
	var forwarder service.EventForwarder
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL, "")
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = pub
			forwarder = pub
		}
	}

	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// 4. Cache + Session
	cacheLayer := cache.NewLayer(st, cacheLogger,
		cache.WithConversationListTTL(cfg.Cache.ConversationListTTL),
	)
	invalidator := cache.NewRedisInvalidator(rdb, cfg.Cache.InvalidationChannel, cacheLayer, cacheLogger)

	sessionOpts := []session.Option{
		session.WithDebounce(cfg.Cache.NotesDebounce),
		session.WithStoreTimeout(cfg.Cache.StoreTimeout),
		session.WithEventPublisher(service.NewPublisherService(cfg.App.EventTopic, pubSub)),
	}

	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.LLMBaseURL)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	if llmProvider != nil {
		sessionOpts = append(sessionOpts, session.WithLLM(llmProvider))
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	} else {
		log.Println("[INFO] LLM Provider disabled")
	}

	sess := session.NewController(cacheLayer, st, sysLogger, sessionOpts...)

	// 5. Services
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.EventTopic,
		forwarder,
		invalidator,
		sysLogger,
	)
	sessionService := service.NewSessionService(sess)
	conversationService := service.NewConversationService(cacheLayer, st)

	// 6. Controllers
	return &Container{
		ConversationController: controller.NewConversationController(conversationService, sessionService),
		SessionController:      controller.NewSessionController(sessionService),

		ConsumerService: consumerService,
		Invalidator:     invalidator,

		Session: sess,
		Logger:  sysLogger,

		pubSub:  pubSub,
		natsPub: natsPub,
		rdb:     rdb,
	}
}

// Shutdown flushes unsaved notes and then releases the infrastructure.
func (c *Container) Shutdown(ctx context.Context) {
	state := c.Session.Close(ctx)
	if state.Dirty {
		c.Logger.Error("Container", "Notes were not saved before shutdown", map[string]interface{}{
			"conversation_id": state.ConversationID,
			"error":           state.LastError,
		})
	}

	if err := c.pubSub.Close(); err != nil {
		log.Printf("[WARN] Failed to close event bus: %v", err)
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.Logger.Sync()
}
