package ports

import (
	"context"
	"errors"
	"image"

	"github.com/forPelevin/vidtext/internal/types"
)

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrOCRFailure        = errors.New("ocr failure")
	ErrOutputWrite       = errors.New("output write failure")
)

type VideoOpener interface {
	// Open returns an error wrapping ErrSourceUnavailable when the video
	// cannot be opened.
	Open(ctx context.Context, path string) (VideoSource, error)
}

type VideoSource interface {
	// Next returns io.EOF once the stream is exhausted.
	Next(ctx context.Context) (types.Frame, error)
	FrameCount() (int, bool)
	Close() error
}

type OCR interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

type Progress interface {
	Add(n int) error
	Finish() error
}
