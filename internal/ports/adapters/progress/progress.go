package progress

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

const description = "Processing Frames"

type Bar struct {
	pb *progressbar.ProgressBar
}

// New renders to w. An unknown total falls back to a spinner.
func New(w io.Writer, total int, known bool) *Bar {
	max := int64(total)
	if !known {
		max = -1
	}
	pb := progressbar.NewOptions64(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
	)
	return &Bar{pb: pb}
}

func (b *Bar) Add(n int) error { return b.pb.Add(n) }

func (b *Bar) Finish() error { return b.pb.Finish() }

// Nop discards progress.
type Nop struct{}

func (Nop) Add(int) error { return nil }

func (Nop) Finish() error { return nil }
