package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// Gray converts img to a single-channel luminance image using the
// ITU-R 601 weights of color.GrayModel. A *image.Gray is returned as is.
func Gray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(b)
	if rgba, ok := img.(*image.RGBA); ok {
		grayFromRGBA(out, rgba)
		return out
	}
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}

// grayFromRGBA walks Pix directly; decoded video frames are always RGBA.
func grayFromRGBA(dst *image.Gray, src *image.RGBA) {
	b := src.Bounds()
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		si := y * src.Stride
		di := y * dst.Stride
		for x := 0; x < w; x++ {
			p := src.Pix[si+x*4 : si+x*4+4]
			c := color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
			dst.Pix[di+x] = color.GrayModel.Convert(c).(color.Gray).Y
		}
	}
}
