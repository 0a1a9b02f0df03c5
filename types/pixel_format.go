// pixel_format.go defines the video pixel formats frames can carry.

package types

import (
	"fmt"
	"strings"
)

// PixelFormat numbering follows libavutil's AVPixelFormat.
type PixelFormat int

const (
	PixelFormatNone    = PixelFormat(-1)
	PixelFormatYUV420P = PixelFormat(0)
	PixelFormatRGB24   = PixelFormat(2)
	PixelFormatGRAY8   = PixelFormat(8)
	PixelFormatNV12    = PixelFormat(23)
	PixelFormatRGBA    = PixelFormat(26)
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatYUV420P: "yuv420p",
	PixelFormatRGB24:   "rgb24",
	PixelFormatGRAY8:   "gray",
	PixelFormatNV12:    "nv12",
	PixelFormatRGBA:    "rgba",
}

func PixelFormatFromString(s string) (PixelFormat, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for f, name := range pixelFormatNames {
		if name == s {
			return f, nil
		}
	}
	return PixelFormatNone, fmt.Errorf("unsupported pixel format '%s'", s)
}

func (f PixelFormat) String() string {
	if name, ok := pixelFormatNames[f]; ok {
		return name
	}
	if f == PixelFormatNone {
		return "none"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// Linesizes returns the unaligned row size of every plane.
func (f PixelFormat) Linesizes(width int) []int {
	switch f {
	case PixelFormatYUV420P:
		c := (width + 1) / 2
		return []int{width, c, c}
	case PixelFormatNV12:
		return []int{width, ((width + 1) / 2) * 2}
	case PixelFormatRGB24:
		return []int{width * 3}
	case PixelFormatRGBA:
		return []int{width * 4}
	case PixelFormatGRAY8:
		return []int{width}
	}
	return nil
}

// PlaneHeights returns the number of rows of every plane.
func (f PixelFormat) PlaneHeights(height int) []int {
	switch f {
	case PixelFormatYUV420P:
		c := (height + 1) / 2
		return []int{height, c, c}
	case PixelFormatNV12:
		return []int{height, (height + 1) / 2}
	case PixelFormatRGB24, PixelFormatRGBA, PixelFormatGRAY8:
		return []int{height}
	}
	return nil
}
