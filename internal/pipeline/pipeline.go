package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/forPelevin/vidtext/internal/ports"
	"github.com/forPelevin/vidtext/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/vidtext/internal/ports/adapters/progress"
	"github.com/forPelevin/vidtext/internal/ports/adapters/tesseract"
	"github.com/forPelevin/vidtext/internal/types"
	"github.com/forPelevin/vidtext/internal/usecase"
)

type Config struct {
	VideoPath     string
	OutputPath    string
	FrameInterval int
	UniqueOnly    bool

	FFmpegPath  string
	FFprobePath string

	TesseractPath string
	Language      string
	// PSM is nil to keep the engine's default segmentation mode.
	PSM *int

	ShowProgress bool
	// ProgressOut receives the progress bar; defaults to stderr.
	ProgressOut io.Writer
	Logger      *slog.Logger
}

func (c Config) Validate() error {
	if c.VideoPath == "" {
		return errors.New("video path is empty")
	}
	if c.OutputPath == "" {
		return errors.New("output path is empty")
	}
	if c.FrameInterval < 1 {
		return fmt.Errorf("interval must be >= 1")
	}
	if c.PSM != nil && (*c.PSM < 0 || *c.PSM > 13) {
		return fmt.Errorf("psm must be in 0..13")
	}
	if st, err := os.Stat(c.OutputPath); err == nil && st.IsDir() {
		return fmt.Errorf("output %s is a directory", c.OutputPath)
	}
	return nil
}

// Run extracts text from cfg.VideoPath and overwrites cfg.OutputPath with
// the result. The output file is only touched after the whole video has
// been processed.
func Run(ctx context.Context, cfg Config) (types.Stats, error) {
	v := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	ocr := tesseract.New(tesseract.Options{
		Bin:      cfg.TesseractPath,
		Language: cfg.Language,
		PSM:      cfg.PSM,
	})

	log := logger(cfg)
	if ver, err := ocr.Version(ctx); err != nil {
		log.Warn("tesseract version check failed", "error", err)
	} else {
		log.Debug("ocr engine", "version", ver)
	}

	return run(ctx, cfg, deps{Video: v, OCR: ocr})
}

type deps struct {
	Video ports.VideoOpener
	OCR   ports.OCR
}

type durationProber interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

func run(ctx context.Context, cfg Config, d deps) (types.Stats, error) {
	log := logger(cfg)
	started := time.Now()

	src, err := d.Video.Open(ctx, cfg.VideoPath)
	if err != nil {
		return types.Stats{}, err
	}
	closed := false
	defer func() {
		if closed {
			return
		}
		if err := src.Close(); err != nil {
			log.Warn("close video source", "error", err)
		}
	}()

	total, known := src.FrameCount()
	attrs := []any{"video", cfg.VideoPath, "interval", cfg.FrameInterval, "unique_only", cfg.UniqueOnly}
	if known {
		attrs = append(attrs, "frames", total)
	}
	if p, ok := d.Video.(durationProber); ok {
		if dur, err := p.ProbeDuration(ctx, cfg.VideoPath); err == nil {
			attrs = append(attrs, "duration", dur.Round(time.Millisecond))
		}
	}
	log.Info("processing video", attrs...)

	var prog ports.Progress = progress.Nop{}
	if cfg.ShowProgress {
		out := cfg.ProgressOut
		if out == nil {
			out = os.Stderr
		}
		prog = progress.New(out, total, known)
	}

	uc := usecase.New(usecase.Deps{OCR: d.OCR, Progress: prog, Logger: log})
	res, err := uc.Run(ctx, src, usecase.Input{
		FrameInterval: cfg.FrameInterval,
		UniqueOnly:    cfg.UniqueOnly,
	})
	if err != nil {
		return types.Stats{}, err
	}
	// a decoder that died mid-stream looks like a short video until it is reaped
	closed = true
	if err := src.Close(); err != nil {
		return types.Stats{}, fmt.Errorf("decode %s: %w", cfg.VideoPath, err)
	}

	if err := writeFile(cfg.OutputPath, []byte(res.Text)); err != nil {
		return types.Stats{}, fmt.Errorf("%w: %w", ports.ErrOutputWrite, err)
	}
	log.Info("text extraction complete",
		"output", cfg.OutputPath,
		"frames_decoded", res.Stats.FramesDecoded,
		"frames_sampled", res.Stats.FramesSampled,
		"blocks", res.Stats.BlocksRetained,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return res.Stats, nil
}

func logger(cfg Config) *slog.Logger {
	if cfg.Logger == nil {
		return slog.Default().With("component", "pipeline")
	}
	return cfg.Logger.With("component", "pipeline")
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}

// ensure adapters implement ports
var _ ports.VideoOpener = (*ffmpeg.Adapter)(nil)
var _ ports.OCR = (*tesseract.Adapter)(nil)
var _ ports.Progress = (*progress.Bar)(nil)
var _ ports.Progress = progress.Nop{}
