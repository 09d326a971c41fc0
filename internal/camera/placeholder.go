package camera

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	placeholderWidth  = 640
	placeholderHeight = 480
)

// Placeholder renders a synthetic frame used when no camera hardware is
// reachable, stamped with the trigger, time and location.
func Placeholder(trigger, location string, when time.Time) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))

	background := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	drawBorder(img, white, 4)

	lines := []string{
		"DOORBELL CAMERA",
		fmt.Sprintf("Trigger: %s", trigger),
		fmt.Sprintf("Time: %s", when.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Location: %s", location),
		"STATUS: TEST MODE",
	}

	y := placeholderHeight/2 - len(lines)*20/2
	for _, line := range lines {
		drawLabel(img, line, white, y)
		y += 24
	}

	return img
}

func drawBorder(img *image.RGBA, c color.Color, thickness int) {
	b := img.Bounds()
	for t := 0; t < thickness; t++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, b.Min.Y+t, c)
			img.Set(x, b.Max.Y-1-t, c)
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			img.Set(b.Min.X+t, y, c)
			img.Set(b.Max.X-1-t, y, c)
		}
	}
}

func drawLabel(img *image.RGBA, text string, c color.Color, y int) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	x := (placeholderWidth - width) / 2

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}
