package camera

import (
	"image"
	"time"
)

// Frame is a single video frame. Data holds tightly packed RGB pixels
// (3 bytes per pixel, row-major), the format the GStreamer pipeline is
// locked to. Frames handed out by a Source are copies: callers may keep
// them without racing the acquisition loop.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	Data      []byte
	TraceID   string
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Data = make([]byte, len(f.Data))
	copy(c.Data, f.Data)
	return &c
}

// ToImage expands the packed RGB data into an NRGBA image for compositing
// and encoding. Rows shorter than expected are left black rather than
// panicking on a truncated buffer.
func (f *Frame) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	n := len(f.Data) / 3
	if max := f.Width * f.Height; n > max {
		n = max
	}
	for i := 0; i < n; i++ {
		src := i * 3
		dst := i * 4
		img.Pix[dst+0] = f.Data[src+0]
		img.Pix[dst+1] = f.Data[src+1]
		img.Pix[dst+2] = f.Data[src+2]
		img.Pix[dst+3] = 0xff
	}
	return img
}
