// Package render draws agent states as heat map frames and encodes them into
// an MJPEG video.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/ctessum/geom"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/geocovid/geocovid/internal/sim"
)

var (
	background       = color.RGBA{R: 16, G: 16, B: 24, A: 255}
	colorSusceptible = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	colorRecovered   = color.RGBA{R: 40, G: 110, B: 255, A: 255}
	labelText        = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	labelBackground  = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// Canvas maps a geographic extent onto a fixed size image.
type Canvas struct {
	Width, Height int
	// Extent is the area drawn. When nil, each frame uses the extent of its
	// own records.
	Extent *geom.Bounds
	// Radius of the infected heat kernel in pixels.
	Radius int
}

// NewCanvas returns a canvas with a heat radius scaled to its size.
func NewCanvas(width, height int, extent *geom.Bounds) *Canvas {
	return &Canvas{
		Width:  width,
		Height: height,
		Extent: extent,
		Radius: max(3, min(width, height)/60),
	}
}

// ExtentOf returns the bounds of the records padded by 5% on each side, or
// nil when there are no records.
func ExtentOf(records []sim.AgentRecord) *geom.Bounds {
	if len(records) == 0 {
		return nil
	}
	b := geom.NewBounds()
	for _, r := range records {
		b.Extend(r.Position.Bounds())
	}
	dx := b.Max.X - b.Min.X
	dy := b.Max.Y - b.Min.Y
	pad := 0.05 * math.Max(dx, dy)
	if pad == 0 {
		pad = 1e-3
	}
	b.Min.X -= pad
	b.Min.Y -= pad
	b.Max.X += pad
	b.Max.Y += pad
	return b
}

func (c *Canvas) pixel(ext *geom.Bounds, p geom.Point) (int, int) {
	x := (p.X - ext.Min.X) / (ext.Max.X - ext.Min.X) * float64(c.Width-1)
	y := (ext.Max.Y - p.Y) / (ext.Max.Y - ext.Min.Y) * float64(c.Height-1)
	return int(math.Round(x)), int(math.Round(y))
}

// Frame draws one tick: susceptible agents as green dots, recovered as blue
// dots and infected as an additive red heat layer on top, with a day label.
func (c *Canvas) Frame(records []sim.AgentRecord, tick int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	fillBackground(img, background)

	ext := c.Extent
	if ext == nil {
		ext = ExtentOf(records)
	}
	if ext != nil {
		heat := make([]float64, c.Width*c.Height)
		for _, r := range records {
			x, y := c.pixel(ext, r.Position)
			switch r.Status {
			case sim.Susceptible:
				dot(img, x, y, colorSusceptible)
			case sim.Recovered:
				dot(img, x, y, colorRecovered)
			case sim.Infected:
				c.splat(heat, x, y)
			}
		}
		c.blendHeat(img, heat)
	}

	label := fmt.Sprintf("day %d  tick %d", tick/sim.StepsPerDay, tick)
	drawTextWithBackground(img, 8, 20, label, labelText, labelBackground)
	return img
}

// splat adds a linear falloff kernel centred on (cx, cy).
func (c *Canvas) splat(heat []float64, cx, cy int) {
	r := c.Radius
	for y := cy - r; y <= cy+r; y++ {
		if y < 0 || y >= c.Height {
			continue
		}
		for x := cx - r; x <= cx+r; x++ {
			if x < 0 || x >= c.Width {
				continue
			}
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if d > float64(r) {
				continue
			}
			heat[y*c.Width+x] += 1 - d/float64(r+1)
		}
	}
}

func (c *Canvas) blendHeat(img *image.RGBA, heat []float64) {
	for i, h := range heat {
		if h == 0 {
			continue
		}
		a := math.Min(1, h)
		off := i * 4
		px := img.Pix[off : off+4 : off+4]
		px[0] = uint8(float64(px[0])*(1-a) + 255*a)
		px[1] = uint8(float64(px[1]) * (1 - a))
		px[2] = uint8(float64(px[2]) * (1 - a))
	}
}

func dot(img *image.RGBA, x, y int, c color.RGBA) {
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			img.SetRGBA(x+dx, y+dy, c)
		}
	}
}

func fillBackground(img *image.RGBA, c color.Color) {
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func drawTextWithBackground(img *image.RGBA, x, y int, text string, textColor, bgColor color.Color) {
	width := len(text) * 7
	const height = 16
	rect := image.Rect(x-2, y-height+3, x+width+2, y+4)
	draw.Draw(img, rect, &image.Uniform{C: bgColor}, image.Point{}, draw.Over)
	addLabel(img, x, y, text, textColor)
}

func addLabel(img *image.RGBA, x, y int, label string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(label)
}
