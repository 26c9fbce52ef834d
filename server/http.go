package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"course-media/config"
	"course-media/constant"
	"course-media/handler"
	"course-media/pkg/auth"
	"course-media/pkg/chunkstore"
	"course-media/pkg/rabbitmq"
	"course-media/pkg/storage"
	"course-media/repository"
	"course-media/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Events are best-effort: without a broker the service still
	// accepts uploads and streams video.
	var publisher service.EventPublisher
	if cfg.Queue != nil && cfg.Queue.Host != "" {
		conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
		} else {
			pub, err := rabbitmq.NewPublisher(ctx, conn, cfg.Queue)
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("failed to open publisher channel")
			} else {
				publisher = pub
				defer pub.Close()
			}
		}
	}

	chunks := chunkstore.New(cfg.Upload.SessionTTL)
	chunks.StartSweeper(ctx, cfg.Upload.SweepInterval)

	backend := storage.New(cfg.Storage.Mode, cfg.Storage.Root, cfg.ObjectStore, cfg.Storage.Bucket)
	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TTL)
	repo := repository.NewRepo(cfg.DB)
	gate := service.NewAccessGate()

	uploadService := service.NewUploadService(chunks, backend, repo, gate, publisher)
	streamService := service.NewStreamService(backend, repo, gate, cfg.Storage.StreamWindow)

	h := handler.New(uploadService, streamService, repo)

	r := gin.Default()
	addHealth(r)

	api := r.Group("/api/v1", handler.ResolveIdentity(tokens))
	api.POST("/uploads/chunk", h.UploadChunk)
	api.GET("/videos/:id/stream", h.StreamVideo)
	api.GET("/courses/:id/videos", h.ListCourseVideos)

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
