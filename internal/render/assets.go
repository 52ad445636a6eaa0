package render

import (
	"errors"
	"fmt"
)

var ErrMissingFrame = errors.New("missing frame")

// Frame is a decoded RGBA sprite with transparency already applied.
type Frame struct {
	Width  int
	Height int
	Pixels []byte
}

// AssetSource resolves a frame key to pixels. Loading and color-keying happen
// once, before the render loop starts.
type AssetSource interface {
	Frame(key FrameKey) (Frame, error)
}

// Sheet is an in-memory sprite sheet: one idle frame and four walking frames per direction.
type Sheet struct {
	idle [Directions]Frame
	walk [Directions][4]Frame
}

func (s *Sheet) Frame(key FrameKey) (Frame, error) {
	if key.Direction < 0 || int(key.Direction) >= Directions {
		return Frame{}, fmt.Errorf("%w: direction %d", ErrMissingFrame, key.Direction)
	}
	if key.Frame < 0 || key.Frame >= key.Animation.Frames() {
		return Frame{}, fmt.Errorf("%w: %s frame %d", ErrMissingFrame, key.Animation, key.Frame)
	}

	switch key.Animation {
	case Idle:
		return s.idle[key.Direction], nil
	case Walking:
		return s.walk[key.Direction][key.Frame], nil
	}
	return Frame{}, fmt.Errorf("%w: animation %s", ErrMissingFrame, key.Animation)
}

// PlaceholderSheet fills every frame with a flat color derived from its key,
// for headless clients and tests.
func PlaceholderSheet(width, height int) *Sheet {
	s := &Sheet{}
	for d := 0; d < Directions; d++ {
		s.idle[d] = solidFrame(width, height, uint8(d*32), 0, 0xFF)
		for f := 0; f < 4; f++ {
			s.walk[d][f] = solidFrame(width, height, uint8(d*32), uint8(f*64), 0x80)
		}
	}
	return s
}

func solidFrame(width, height int, r, g, b uint8) Frame {
	pixels := make([]byte, width*height*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = r
		pixels[i+1] = g
		pixels[i+2] = b
		pixels[i+3] = 0xFF
	}
	return Frame{Width: width, Height: height, Pixels: pixels}
}
