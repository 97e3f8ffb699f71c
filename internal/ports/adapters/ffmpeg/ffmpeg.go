package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forPelevin/vidtext/internal/ports"
	"github.com/forPelevin/vidtext/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// Open probes the first video stream and starts a decoder that writes raw
// RGBA frames to a pipe. Every failure before the first frame is reported
// as ports.ErrSourceUnavailable.
func (a *Adapter) Open(ctx context.Context, path string) (ports.VideoSource, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ports.ErrSourceUnavailable, path)
	}

	info, err := a.probeStream(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err)
	}

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-nostdin",
		"-v", "error",
		"-i", path,
		"-map", "0:v:0",
		"-fps_mode", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg stdout: %w", ports.ErrSourceUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg start: %w", ports.ErrSourceUnavailable, err)
	}

	src := newSource(stdout, info)
	src.cmd = cmd
	src.stderr = &stderr
	return src, nil
}

type streamInfo struct {
	Width  int
	Height int
	Frames int
	Known  bool
}

func (a *Adapter) probeStream(ctx context.Context, path string) (streamInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,nb_frames:stream_tags=rotate:stream_side_data=rotation",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return streamInfo{}, fmt.Errorf("ffprobe stream: %w\n%s", err, stderr.String())
	}
	return parseProbe(b)
}

// parseProbe returns the size of the frames ffmpeg will emit. ffmpeg applies
// the display rotation on decode, so a stream rotated by 90 or 270 degrees
// comes out with width and height swapped relative to the coded size.
func parseProbe(b []byte) (streamInfo, error) {
	var raw struct {
		Streams []struct {
			Width    int    `json:"width"`
			Height   int    `json:"height"`
			NbFrames string `json:"nb_frames"`
			Tags     struct {
				Rotate string `json:"rotate"`
			} `json:"tags"`
			SideData []struct {
				Rotation *float64 `json:"rotation"`
			} `json:"side_data_list"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return streamInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(raw.Streams) == 0 {
		return streamInfo{}, errors.New("no video stream")
	}
	s := raw.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return streamInfo{}, fmt.Errorf("invalid frame size %dx%d", s.Width, s.Height)
	}
	rotation := 0
	if v, err := strconv.Atoi(strings.TrimSpace(s.Tags.Rotate)); err == nil {
		rotation = v
	}
	for _, sd := range s.SideData {
		if sd.Rotation != nil {
			rotation = int(*sd.Rotation)
			break
		}
	}
	info := streamInfo{Width: s.Width, Height: s.Height}
	if quarterTurn(rotation) {
		info.Width, info.Height = s.Height, s.Width
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s.NbFrames)); err == nil && n >= 0 {
		info.Frames = n
		info.Known = true
	}
	return info, nil
}

func quarterTurn(deg int) bool {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg == 90 || deg == 270
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// source reads fixed-size RGBA frames from r.
type source struct {
	r      io.Reader
	info   streamInfo
	next   int
	eof    bool
	cmd    *exec.Cmd
	stderr *bytes.Buffer

	closeOnce sync.Once
	closeErr  error
}

func newSource(r io.Reader, info streamInfo) *source {
	return &source{r: r, info: info}
}

func (s *source) Next(ctx context.Context) (types.Frame, error) {
	if s.eof {
		return types.Frame{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return types.Frame{}, err
	}
	img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	if _, err := io.ReadFull(s.r, img.Pix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// a truncated trailing frame ends the stream
			s.eof = true
			return types.Frame{}, io.EOF
		}
		return types.Frame{}, fmt.Errorf("read raw frame: %w", err)
	}
	fr := types.Frame{Index: s.next, Image: img}
	s.next++
	return fr, nil
}

func (s *source) FrameCount() (int, bool) {
	return s.info.Frames, s.info.Known
}

// Close stops the decoder. A decoder that was drained to the end reports its
// exit status; one stopped early is killed and its exit status ignored.
func (s *source) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		if !s.eof {
			_ = s.cmd.Process.Kill()
			_ = s.cmd.Wait()
			return
		}
		if err := s.cmd.Wait(); err != nil {
			s.closeErr = fmt.Errorf("ffmpeg decode: %w\n%s", err, s.stderr.String())
		}
	})
	return s.closeErr
}
