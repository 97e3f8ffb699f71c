package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
)

const (
	DefaultBin      = "tesseract"
	DefaultLanguage = "eng"
)

// Options configures one engine instance. Bin is held per adapter, so two
// adapters in one process can point at different installs.
type Options struct {
	Bin      string
	Language string
	// PSM is the page segmentation mode; nil keeps tesseract's default.
	PSM *int
}

type Adapter struct {
	bin  string
	lang string
	psm  *int
}

func New(opts Options) *Adapter {
	if opts.Bin == "" {
		opts.Bin = DefaultBin
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	return &Adapter{bin: opts.Bin, lang: opts.Language, psm: opts.PSM}
}

// Recognize feeds img to tesseract as PNG on stdin and returns stdout as is.
// Trimming is left to the caller.
func (a *Adapter) Recognize(ctx context.Context, img image.Image) (string, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	cmd := exec.CommandContext(ctx, a.bin, a.args()...)
	cmd.Stdin = &in
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w\n%s", err, stderr.String())
	}
	return stdout.String(), nil
}

func (a *Adapter) args() []string {
	args := []string{"stdin", "stdout", "-l", a.lang}
	if a.psm != nil {
		args = append(args, "--psm", strconv.Itoa(*a.psm))
	}
	return args
}

// Version returns the first line of `tesseract --version`.
func (a *Adapter) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, a.bin, "--version")
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tesseract version: %w\n%s", err, string(b))
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(line), nil
}
