package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/forPelevin/vidtext/internal/pipeline"
)

func run(cmd *cobra.Command, video, output string) error {
	interval, _ := cmd.Flags().GetInt("interval")
	unique, _ := cmd.Flags().GetBool("unique")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	lang, _ := cmd.Flags().GetString("lang")

	if lang == "" {
		lang = getenvDefault("TESSERACT_LANG", "eng")
	}

	logger := newLogger(getenvDefault("LOG_LEVEL", "info"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := pipeline.Config{
		VideoPath:     video,
		OutputPath:    output,
		FrameInterval: interval,
		UniqueOnly:    unique,

		FFmpegPath:  getenvDefault("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getenvDefault("FFPROBE_PATH", "ffprobe"),

		TesseractPath: getenvDefault("TESSERACT_PATH", "tesseract"),
		Language:      lang,

		ShowProgress: !noProgress,
		ProgressOut:  cmd.ErrOrStderr(),
		Logger:       logger,
	}

	if cmd.Flags().Changed("psm") {
		psm, _ := cmd.Flags().GetInt("psm")
		cfg.PSM = &psm
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := pipeline.Run(ctx, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Text extraction complete. Output saved to %s\n", output)
	return nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func newLogger(level string) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      parseLevel(level),
		TimeFormat: "15:04:05",
		NoColor:    os.Getenv("NO_COLOR") != "",
	}))
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
