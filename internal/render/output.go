package render

import "image"

// OutputBuffer is the finished frame: width*height sRGB RGBA8 pixels,
// row-major (spec §6). Stride is the buffer's actual row stride in
// bytes; RowSize is the unpadded row size (width*4). This
// implementation never pads rows (Stride == RowSize): padding exists
// in spec §6 only to accommodate a compute backend's device-buffer
// alignment requirements, which the GPU backend already resolves to an
// unpadded host buffer before it reaches here.
type OutputBuffer struct {
	Width, Height int
	Stride        int
	RowSize       int
	Pix           []byte
}

// NewOutputBuffer allocates a zeroed RGBA8 buffer.
func NewOutputBuffer(width, height int) *OutputBuffer {
	rowSize := width * 4
	return &OutputBuffer{
		Width:   width,
		Height:  height,
		Stride:  rowSize,
		RowSize: rowSize,
		Pix:     make([]byte, rowSize*height),
	}
}

// Set writes one pixel's opaque sRGB color.
func (o *OutputBuffer) Set(x, y int, r, g, b uint8) {
	i := y*o.Stride + x*4
	o.Pix[i+0] = r
	o.Pix[i+1] = g
	o.Pix[i+2] = b
	o.Pix[i+3] = 255
}

// ToImage wraps the buffer as a standard library image.RGBA so hosts
// can encode it with image/png without copying pixel data.
func (o *OutputBuffer) ToImage() *image.RGBA {
	return &image.RGBA{
		Pix:    o.Pix,
		Stride: o.Stride,
		Rect:   image.Rect(0, 0, o.Width, o.Height),
	}
}
