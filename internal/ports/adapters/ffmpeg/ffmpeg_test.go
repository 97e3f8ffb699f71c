package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/forPelevin/vidtext/internal/ports"
)

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    streamInfo
		wantErr bool
	}{
		{
			name: "known count",
			in:   `{"programs":[],"streams":[{"width":320,"height":240,"nb_frames":"75"}]}`,
			want: streamInfo{Width: 320, Height: 240, Frames: 75, Known: true},
		},
		{
			name: "unknown count",
			in:   `{"streams":[{"width":640,"height":360,"nb_frames":"N/A"}]}`,
			want: streamInfo{Width: 640, Height: 360},
		},
		{
			name: "missing count",
			in:   `{"streams":[{"width":2,"height":2}]}`,
			want: streamInfo{Width: 2, Height: 2},
		},
		{
			name: "display matrix rotated -90",
			in:   `{"streams":[{"width":4,"height":2,"nb_frames":"1","side_data_list":[{"side_data_type":"Display Matrix","rotation":-90}]}]}`,
			want: streamInfo{Width: 2, Height: 4, Frames: 1, Known: true},
		},
		{
			name: "rotate tag 270",
			in:   `{"streams":[{"width":1920,"height":1080,"tags":{"rotate":"270"}}]}`,
			want: streamInfo{Width: 1080, Height: 1920},
		},
		{
			name: "upside down keeps size",
			in:   `{"streams":[{"width":4,"height":2,"side_data_list":[{"rotation":180}]}]}`,
			want: streamInfo{Width: 4, Height: 2},
		},
		{name: "no stream", in: `{"streams":[]}`, wantErr: true},
		{name: "zero size", in: `{"streams":[{"width":0,"height":0}]}`, wantErr: true},
		{name: "garbage", in: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbe([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSource_ReadsFramesInOrder(t *testing.T) {
	info := streamInfo{Width: 2, Height: 1, Frames: 3, Known: true}
	frameSize := 2 * 1 * 4
	raw := make([]byte, 0, frameSize*3)
	for i := 0; i < 3; i++ {
		raw = append(raw, bytes.Repeat([]byte{byte(i + 1)}, frameSize)...)
	}
	src := newSource(bytes.NewReader(raw), info)

	for i := 0; i < 3; i++ {
		fr, err := src.Next(context.Background())
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if fr.Index != i {
			t.Fatalf("expected index %d, got %d", i, fr.Index)
		}
		rgba, ok := fr.Image.(*image.RGBA)
		if !ok {
			t.Fatalf("expected *image.RGBA, got %T", fr.Image)
		}
		if rgba.Bounds().Dx() != 2 || rgba.Bounds().Dy() != 1 {
			t.Fatalf("unexpected bounds %v", rgba.Bounds())
		}
		if rgba.Pix[0] != byte(i+1) {
			t.Fatalf("frame %d: unexpected pixel %d", i, rgba.Pix[0])
		}
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if n, ok := src.FrameCount(); !ok || n != 3 {
		t.Fatalf("unexpected frame count %d %v", n, ok)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSource_RotatedFrameKeepsRows(t *testing.T) {
	// a 4x2 coded stream with -90 rotation decodes to 2x4 frames
	info, err := parseProbe([]byte(`{"streams":[{"width":4,"height":2,"side_data_list":[{"rotation":-90}]}]}`))
	if err != nil {
		t.Fatalf("parse probe: %v", err)
	}
	raw := make([]byte, 2*4*4)
	for row := 0; row < 4; row++ {
		for i := 0; i < 2*4; i++ {
			raw[row*2*4+i] = byte(row + 1)
		}
	}
	src := newSource(bytes.NewReader(raw), info)

	fr, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	b := fr.Image.Bounds()
	if b.Dx() != 2 || b.Dy() != 4 {
		t.Fatalf("expected 2x4 frame, got %v", b)
	}
	rgba := fr.Image.(*image.RGBA)
	for y := 0; y < 4; y++ {
		if got := rgba.RGBAAt(1, y).R; got != byte(y+1) {
			t.Fatalf("row %d: expected %d, got %d", y, y+1, got)
		}
	}
}

func TestQuarterTurn(t *testing.T) {
	tests := map[int]bool{0: false, 90: true, -90: true, 180: false, 270: true, -270: true, 360: false, 450: true}
	for deg, want := range tests {
		if got := quarterTurn(deg); got != want {
			t.Fatalf("quarterTurn(%d) = %v, want %v", deg, got, want)
		}
	}
}

func TestSource_TruncatedFrameEndsStream(t *testing.T) {
	info := streamInfo{Width: 2, Height: 2}
	raw := make([]byte, 2*2*4+5)
	src := newSource(bytes.NewReader(raw), info)

	if _, err := src.Next(context.Background()); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF on truncated frame, got %v", err)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF to stick, got %v", err)
	}
}

func TestSource_EmptyStream(t *testing.T) {
	src := newSource(bytes.NewReader(nil), streamInfo{Width: 1, Height: 1, Known: true})
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestSource_CanceledContext(t *testing.T) {
	src := newSource(bytes.NewReader(make([]byte, 4)), streamInfo{Width: 1, Height: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpen_MissingFileIsSourceUnavailable(t *testing.T) {
	a := New("", "")
	_, err := a.Open(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if !errors.Is(err, ports.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestOpen_DirectoryIsSourceUnavailable(t *testing.T) {
	a := New("", "")
	_, err := a.Open(context.Background(), t.TempDir())
	if !errors.Is(err, ports.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestOpen_ProbeFailureIsSourceUnavailable(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.mp4")
	if err := os.WriteFile(in, []byte("not a video"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	a := New("", filepath.Join(t.TempDir(), "no-such-ffprobe"))
	_, err := a.Open(context.Background(), in)
	if !errors.Is(err, ports.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
