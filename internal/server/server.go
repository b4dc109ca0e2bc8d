package server

import (
	"backend-ecotrack/internal/config"
	"backend-ecotrack/internal/db"
	"backend-ecotrack/internal/journey"
	"backend-ecotrack/internal/ledger"
	"backend-ecotrack/internal/session"
	"backend-ecotrack/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Log      *zap.Logger
	Stream   *stream.Hub
	Journeys *journey.Service
	Sessions *session.Service
}

func NewServer(cfg config.Config, pg *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	// keep a nil pool out of the interface so the recorder sees no database
	var q db.Querier
	if pg != nil {
		q = pg
	}

	hub := stream.NewHub(redisClient, log.Named("stream"))
	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       pg,
		Redis:    redisClient,
		Log:      log,
		Stream:   hub,
		Journeys: journey.NewService(ledger.NewRecorder(q), hub, log.Named("journey"), cfg.MockJourneys),
		Sessions: session.NewService(cfg.SessionSecret, cfg.SessionTTL),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	journey.RegisterRoutes(s.App, s.Journeys, s.Sessions, session.Middleware(s.Sessions))
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, s.Journeys.Exists)
}
