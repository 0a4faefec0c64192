package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/firebrands-backend/internal/audit"
	"github.com/kollektive-hackathon/firebrands-backend/internal/claim"
	"github.com/kollektive-hackathon/firebrands-backend/internal/game"
	"github.com/kollektive-hackathon/firebrands-backend/internal/leaderboard"
	"github.com/kollektive-hackathon/firebrands-backend/internal/ledger"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/config"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/event"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/metrics"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/middleware"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/pubsub"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/store"
	pkgws "github.com/kollektive-hackathon/firebrands-backend/internal/pkg/ws"
	"github.com/kollektive-hackathon/firebrands-backend/internal/profile"
	"github.com/kollektive-hackathon/firebrands-backend/internal/roster"
	"github.com/kollektive-hackathon/firebrands-backend/internal/ws"
	"github.com/kollektive-hackathon/firebrands-backend/pkg/firebase"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

type services struct {
	metrics  *metrics.Metrics
	ledger   *ledger.Ledger
	gate     *claim.Gate
	engine   *game.Engine
	roster   *roster.Service
	board    *leaderboard.Board
	profile  *profile.ProfileService
	auditor  *audit.Reconciler
	hub      *pkgws.WebSocketNotificationHub
	verifier middleware.TokenVerifier
	limiter  *middleware.IntentLimiter
}

func main() {
	setupZerolog()
	cfg := config.Load(viper.New())
	setLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	var (
		publisher  pubsub.Publisher = pubsub.Noop{}
		subscriber roster.Subscriber
	)
	if cfg.GoogleProjectId != "" {
		client, err := pubsub.NewClient(ctx, cfg.GoogleProjectId)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize pubsub")
		}
		defer client.Close()
		if err := client.EnsureTopics(event.GameTopic); err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve pubsub topics")
		}
		publisher = client
		subscriber = client
	} else {
		log.Warn().Msg("GOOGLE_PROJECT_ID not set, game events stay local")
	}

	authClient, err := firebase.NewAuthClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize firebase")
	}

	svc := newServices(cfg, db, publisher, authClient)

	if _, err := audit.Schedule(ctx, svc.auditor, cfg.AuditSchedule); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.AuditSchedule).Msg("Invalid AUDIT_SCHEDULE")
	}

	server := &http.Server{
		Addr:         cfg.Port,
		Handler:      setupApiRouter(cfg, svc, subscriber),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Server shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Port).Str("driver", cfg.DbDriver).Msg("Firebrands API listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func newServices(cfg config.Config, db *gorm.DB, publisher pubsub.Publisher, verifier middleware.TokenVerifier) *services {
	m := metrics.New()
	hub := pkgws.NewNotificationHub()
	l := ledger.New(db, m)
	gate := claim.NewGate(db, l, cfg.Economy, m)

	return &services{
		metrics: m,
		ledger:  l,
		gate:    gate,
		engine: game.NewEngine(
			game.NewRegistry(db, l, m),
			game.UniformRoller{},
			cfg.Economy,
			game.NewEventBridge(publisher, hub),
			m,
		),
		roster:   roster.NewService(db),
		board:    leaderboard.New(db),
		profile:  &profile.ProfileService{Db: db, Gate: gate},
		auditor:  audit.NewReconciler(db, m),
		hub:      hub,
		verifier: verifier,
		limiter:  middleware.NewIntentLimiter(cfg.IntentRate, cfg.IntentBurst),
	}
}

func setupApiRouter(cfg config.Config, svc *services, subscriber roster.Subscriber) *gin.Engine {
	apiRouter := gin.New()
	apiRouter.Use(gin.Logger())
	middleware.RegisterGlobalMiddleware(apiRouter, cfg.CorsOrigins)

	apiRouter.GET("/metrics", gin.WrapH(svc.metrics.Handler()))

	routerGroup := apiRouter.Group("/firebrands-api")
	auth := middleware.VerifyAuthToken(svc.verifier)
	throttle := svc.limiter.Middleware()

	ws.RegisterRoutes(routerGroup, svc.hub, auth)
	ledger.RegisterRoutes(routerGroup, svc.ledger, auth, throttle)
	claim.RegisterRoutes(routerGroup, svc.gate, auth, throttle)
	game.RegisterRoutes(routerGroup, svc.engine, auth, throttle)
	profile.RegisterRoutes(routerGroup, svc.profile, auth)
	leaderboard.RegisterRoutes(routerGroup, svc.board, auth)
	roster.RegisterRoutesAndSubscriptions(routerGroup, svc.roster, auth, subscriber)

	return apiRouter
}

func setupZerolog() {
	zerolog.LevelFieldName = "severity"
	zerolog.TimestampFieldName = "time"
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

func setLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
