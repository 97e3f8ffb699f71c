package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/forPelevin/vidtext/internal/domain/extract"
	"github.com/forPelevin/vidtext/internal/domain/imaging"
	"github.com/forPelevin/vidtext/internal/ports"
	"github.com/forPelevin/vidtext/internal/types"
)

type Deps struct {
	OCR      ports.OCR
	Progress ports.Progress
	Logger   *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	FrameInterval int
	UniqueOnly    bool
}

type Result struct {
	Blocks []types.Block
	Text   string
	Stats  types.Stats
}

// Run drains src in decode order. Every interval-th frame is converted to
// grayscale and recognized; results pass through the dedup filter before
// being appended. The source is not closed here.
func (u Usecase) Run(ctx context.Context, src ports.VideoSource, in Input) (Result, error) {
	interval := in.FrameInterval
	if interval < 1 {
		return Result{}, fmt.Errorf("frame interval must be >= 1, got %d", interval)
	}
	log := u.d.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "usecase")

	dedup := extract.NewDeduper(in.UniqueOnly)
	var res Result
	for {
		fr, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read frame %d: %w", res.Stats.FramesDecoded, err)
		}
		res.Stats.FramesDecoded++

		if extract.Sampled(fr.Index, interval) {
			res.Stats.FramesSampled++
			text, err := u.d.OCR.Recognize(ctx, imaging.Gray(fr.Image))
			if err != nil {
				return Result{}, fmt.Errorf("%w: frame %d: %w", ports.ErrOCRFailure, fr.Index, err)
			}
			text = strings.TrimSpace(text)
			if dedup.Keep(text) {
				res.Blocks = append(res.Blocks, types.Block{Frame: fr.Index, Text: text})
				log.Debug("frame retained", "frame", fr.Index, "runes", len([]rune(text)))
			}
		}

		u.advance(log)
	}

	res.Stats.BlocksRetained = len(res.Blocks)
	res.Text = extract.Render(res.Blocks)
	if u.d.Progress != nil {
		if err := u.d.Progress.Finish(); err != nil {
			log.Debug("progress finish failed", "error", err)
		}
	}
	return res, nil
}

// advance never fails the run; progress is observational.
func (u Usecase) advance(log *slog.Logger) {
	if u.d.Progress == nil {
		return
	}
	if err := u.d.Progress.Add(1); err != nil {
		log.Debug("progress update failed", "error", err)
	}
}
