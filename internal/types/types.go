package types

import "image"

// Frame is one decoded video frame. Index is its zero-based position in
// decode order.
type Frame struct {
	Index int
	Image image.Image
}

// Block is a retained recognition result.
type Block struct {
	Frame int    `json:"frame"`
	Text  string `json:"text"`
}

type Stats struct {
	FramesDecoded  int `json:"frames_decoded"`
	FramesSampled  int `json:"frames_sampled"`
	BlocksRetained int `json:"blocks_retained"`
}
