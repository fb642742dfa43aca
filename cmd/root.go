package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"photo-fusion-server/modules/common/config"
	"photo-fusion-server/modules/common/logger"
)

// cfg is loaded once in PersistentPreRunE and shared by every subcommand.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "photo-fusion-server",
	Short: "Celebify, CharacterFuse and PokéFusion photo experiences backed by Gemini",
	Long: `photo-fusion-server runs the photo experiences as an HTTP and websocket API
(serve) or as one-shot commands that edit a single local image.`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// preRunAppE - 로거 설정 후 환경변수를 읽고 검증합니다.
// GEMINI_API_KEY is required on every path, so a missing key fails here
// before any request is attempted.
func preRunAppE(cmd *cobra.Command, args []string) error {
	logger.Setup(os.Getenv("APP_ENV"))

	c, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger.Setup(c.AppEnv)
	cfg = c
	return nil
}

// Execute - main.go에서 호출되는 진입점
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("❌ command failed")
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, celebifyCmd, characterFuseCmd, pokeFusionCmd)
}
