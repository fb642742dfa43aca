package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"photo-fusion-server/modules/common/config"
	"photo-fusion-server/modules/common/hub"
	"photo-fusion-server/modules/common/redis"
	"photo-fusion-server/modules/common/session"
	"photo-fusion-server/modules/common/stats"
	"photo-fusion-server/modules/server"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket API",
	RunE:  serveCommand,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides PORT)")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	svcs, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}

	counter, closeCounter := newCounter(ctx, cfg)
	defer closeCounter()

	h := hub.New()
	sessions := session.NewManager(cfg.SessionTTL, h, counter)
	svcs.register(sessions)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(cfg, sessions, h, counter).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("port", cfg.Port).Msg("🚀 Photo Fusion Server starting")
	if cfg.IsDevelopment() {
		log.Debug().
			Str("text_model", cfg.GeminiTextModel).
			Str("image_model", cfg.GeminiImageModel).
			Dur("session_ttl", cfg.SessionTTL).
			Dur("request_timeout", cfg.RequestTimeout).
			Int("rate_limit_per_minute", cfg.RateLimitPerMinute).
			Msg("🔧 [Config] development settings")
	}
	log.Info().Msgf("📡 WebSocket endpoint: ws://localhost:%s/ws?session={id}", cfg.Port)
	log.Info().Msgf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Info().Msgf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("🛑 Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newCounter uses Redis for generation stats when configured and reachable,
// and process memory otherwise.
func newCounter(ctx context.Context, cfg *config.Config) (stats.Counter, func()) {
	if !cfg.RedisEnabled() {
		log.Info().Msg("[Stats] Redis not configured, counting in memory")
		return stats.NewMemoryCounter(), func() {}
	}

	rdb, err := redis.Connect(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ [Stats] Redis unavailable, counting in memory")
		return stats.NewMemoryCounter(), func() {}
	}
	return stats.NewRedisCounter(rdb, stats.DefaultRedisKey), func() { closeRedis(rdb) }
}

func closeRedis(rdb *goredis.Client) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("[Redis] close failed")
	}
}
