package extract

import (
	"strconv"
	"strings"

	"github.com/forPelevin/vidtext/internal/types"
)

// Separator closes every block in the output file.
var Separator = strings.Repeat("-", 40)

// Sampled reports whether the frame at index should be sent to OCR.
// Intervals below 1 are treated as 1.
func Sampled(index, interval int) bool {
	if interval <= 1 {
		return true
	}
	return index%interval == 0
}

// Deduper decides which recognition results are retained.
// With uniqueOnly disabled every result is kept, empty ones included.
type Deduper struct {
	uniqueOnly bool
	prev       string
	hasPrev    bool
}

func NewDeduper(uniqueOnly bool) *Deduper {
	return &Deduper{uniqueOnly: uniqueOnly}
}

// Keep expects already trimmed text. The previous state only moves on
// retention, so a suppressed frame never becomes the comparison base.
func (d *Deduper) Keep(text string) bool {
	if !d.uniqueOnly {
		return true
	}
	if text == "" {
		return false
	}
	if d.hasPrev && text == d.prev {
		return false
	}
	d.prev = text
	d.hasPrev = true
	return true
}

func formatBlock(index int, text string) string {
	var b strings.Builder
	b.WriteString("Frame ")
	b.WriteString(strconv.Itoa(index))
	b.WriteString(":\n")
	b.WriteString(text)
	b.WriteString("\n")
	b.WriteString(Separator)
	b.WriteString("\n")
	return b.String()
}

// Render concatenates blocks in the order given.
func Render(blocks []types.Block) string {
	var b strings.Builder
	for _, bl := range blocks {
		b.WriteString(formatBlock(bl.Frame, bl.Text))
	}
	return b.String()
}
