package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"

	"github.com/reserveiviagens/rsv360-media-service/internal/auth"
	"github.com/reserveiviagens/rsv360-media-service/internal/config"
	"github.com/reserveiviagens/rsv360-media-service/internal/derive"
	"github.com/reserveiviagens/rsv360-media-service/internal/handlers"
	"github.com/reserveiviagens/rsv360-media-service/internal/media"
	"github.com/reserveiviagens/rsv360-media-service/internal/middleware"
	service "github.com/reserveiviagens/rsv360-media-service/internal/services"
	"github.com/reserveiviagens/rsv360-media-service/internal/storage"
	"github.com/reserveiviagens/rsv360-media-service/internal/utils"
)

func main() {
	// load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(err)
	}
	dev := cfg.App.Env == "development"

	// logger
	logger, _ := utils.NewLogger(dev)
	defer func() { _ = logger.Sync() }()

	// upload root + thumbnails dir
	store, err := storage.NewStore(afero.NewOsFs(), cfg.Storage.Dir, cfg.Storage.PublicPrefix)
	if err != nil {
		logger.Fatalf("storage init: %v", err)
	}

	// video frame extractor
	extractor := derive.NewFFmpeg(cfg.FFmpeg.Path, cfg.FFmpegOffset, cfg.FFmpeg.ScaleWidth, cfg.FFmpegTimeout, logger)

	// admission gates
	imgGate := media.NewGate(media.KindImage, media.Limits{
		MaxFileBytes: cfg.ImageLimitBytes(),
		MaxFiles:     cfg.Upload.ImageMaxFiles,
	})
	vidGate := media.NewGate(media.KindVideo, media.Limits{
		MaxFileBytes: cfg.VideoLimitBytes(),
		MaxFiles:     cfg.Upload.VideoMaxFiles,
	})

	// service
	imgOpts := derive.ImageOptions{
		ThumbSize:     cfg.Derive.ThumbSize,
		ThumbQuality:  cfg.Derive.ThumbQuality,
		MaxWidth:      cfg.Derive.MaxWidth,
		MaxHeight:     cfg.Derive.MaxHeight,
		ResizeQuality: cfg.Derive.ResizeQuality,
	}
	msvc := service.NewMediaService(store, extractor, imgGate, vidGate, imgOpts, logger)

	// bearer-token verifier
	verifier, err := auth.NewVerifier(cfg.Auth.PublicKeyPath, cfg.Auth.AdminToken)
	if err != nil {
		logger.Fatalf("auth init: %v", err)
	}
	rl := middleware.NewIPRateLimiter(cfg.Upload.RateLimitPerMin, logger)
	defer rl.Close()

	// fiber app & routes
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    cfg.BodyLimitBytes(),
	})
	h := handlers.NewHandler(msvc, logger)

	api := app.Group("/api/upload", rl.Handler(), verifier.Middleware())
	api.Post("/images", h.UploadImages)
	api.Post("/single", h.UploadSingle)
	api.Post("/videos", h.UploadVideos)
	api.Get("/images", h.ListImages)
	api.Get("/videos", h.ListVideos)
	api.Delete("/images/:filename", h.DeleteImage)
	api.Delete("/videos/:filename", h.DeleteVideo)

	app.Static(cfg.Storage.PublicPrefix, cfg.Storage.Dir)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	// start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infof("starting media service on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("listen failed: %v", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown requested")
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Info("shutdown completed")
}
