package camera

import (
	"image"
	"image/color"
)

// Enhance applies a deterministic contrast stretch followed by a mild
// sharpen. Small frames and already well-spread frames pass through
// mostly unchanged.
func Enhance(src image.Image) image.Image {
	stretched := stretchContrast(src)
	return sharpen(stretched)
}

// stretchContrast remaps pixel values so the frame's 1st and 99th luma
// percentiles span the full range.
func stretchContrast(src image.Image) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)

	var hist [256]int
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[luma(src.At(x, y))]++
			total++
		}
	}

	if total == 0 {
		return out
	}

	lo, hi := percentileBounds(hist[:], total)
	if hi <= lo {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.Set(x, y, src.At(x, y))
			}
		}
		return out
	}

	scale := 255.0 / float64(hi-lo)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := src.At(x, y).RGBA()
			out.SetRGBA(x, y, color.RGBA{
				R: remap(uint8(r>>8), lo, scale),
				G: remap(uint8(g>>8), lo, scale),
				B: remap(uint8(bl>>8), lo, scale),
				A: uint8(a >> 8),
			})
		}
	}

	return out
}

func percentileBounds(hist []int, total int) (lo, hi int) {
	lowCut := total / 100
	highCut := total - lowCut

	sum := 0
	lo, hi = 0, 255
	for i, n := range hist {
		sum += n
		if sum > lowCut {
			lo = i
			break
		}
	}
	sum = 0
	for i, n := range hist {
		sum += n
		if sum >= highCut {
			hi = i
			break
		}
	}
	return lo, hi
}

func remap(v uint8, lo int, scale float64) uint8 {
	mapped := float64(int(v)-lo) * scale
	if mapped < 0 {
		return 0
	}
	if mapped > 255 {
		return 255
	}
	return uint8(mapped)
}

// sharpen applies an unsharp-style 3x3 kernel with a light center weight
func sharpen(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)

	// kernel: center 5, cross -1 at quarter strength blended with source
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if x == b.Min.X || y == b.Min.Y || x == b.Max.X-1 || y == b.Max.Y-1 {
				out.SetRGBA(x, y, src.RGBAAt(x, y))
				continue
			}

			center := src.RGBAAt(x, y)
			up := src.RGBAAt(x, y-1)
			down := src.RGBAAt(x, y+1)
			left := src.RGBAAt(x-1, y)
			right := src.RGBAAt(x+1, y)

			out.SetRGBA(x, y, color.RGBA{
				R: sharpenChannel(center.R, up.R, down.R, left.R, right.R),
				G: sharpenChannel(center.G, up.G, down.G, left.G, right.G),
				B: sharpenChannel(center.B, up.B, down.B, left.B, right.B),
				A: center.A,
			})
		}
	}

	return out
}

func sharpenChannel(c, up, down, left, right uint8) uint8 {
	edge := 5*int(c) - int(up) - int(down) - int(left) - int(right)
	blended := (3*int(c) + edge) / 4
	if blended < 0 {
		return 0
	}
	if blended > 255 {
		return 255
	}
	return uint8(blended)
}

func luma(c color.Color) int {
	r, g, b, _ := c.RGBA()
	v := (299*int(r>>8) + 587*int(g>>8) + 114*int(b>>8)) / 1000
	if v > 255 {
		v = 255
	}
	return v
}
