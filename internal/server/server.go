package server

import (
	"backend-cogload/internal/attention"
	"backend-cogload/internal/auth"
	"backend-cogload/internal/config"
	"backend-cogload/internal/device"
	"backend-cogload/internal/hrv"
	"backend-cogload/internal/ingest"
	"backend-cogload/internal/session"
	"backend-cogload/internal/stream"
	"backend-cogload/internal/timeline"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Tracker  *device.Tracker
	Timeline *timeline.Service
	Receiver *ingest.Receiver
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)
	tracker := device.NewTracker(cfg.LivenessTimeout(), cfg.LivenessCheckInterval())
	tracker.OnTransition(func(status device.Status) {
		hub.BroadcastAll(stream.SensorStatus(string(status)))
	})
	tl := timeline.NewService(db)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Stream:   hub,
		Tracker:  tracker,
		Timeline: tl,
	}
	if redisClient != nil {
		s.Receiver = ingest.NewReceiver(redisClient, db, hub, tracker, tl, cfg.CalibrationWindowMS)
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "sensor": s.Tracker.Snapshot()})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	control := ingest.NewControl(s.Redis)
	sessions := s.App.Group("/sessions")

	session.RegisterRoutes(sessions, session.NewService(s.DB, control, s.Timeline), jwtMiddleware)
	timeline.RegisterRoutes(sessions, s.Timeline, jwtMiddleware)
	hrv.RegisterRoutes(sessions, hrv.NewService(s.DB, s.Stream, hrv.OptionsFromConfig(s.Cfg)), jwtMiddleware)
	attention.RegisterRoutes(sessions, attention.NewService(s.DB), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
