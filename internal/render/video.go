package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"slices"

	"github.com/icza/mjpeg"

	"github.com/geocovid/geocovid/internal/sim"
)

// Video is an observer that turns every sampled tick into one MJPEG frame.
type Video struct {
	canvas *Canvas
	out    mjpeg.AviWriter
	buf    bytes.Buffer
	opts   jpeg.Options
	frames int

	keep []int
	kept []*image.RGBA
}

// NewVideo creates an AVI file at path. If the canvas has no extent, the
// extent of the first non-empty frame is fixed for the rest of the video.
func NewVideo(path string, canvas *Canvas, fps int) (*Video, error) {
	out, err := mjpeg.New(path, int32(canvas.Width), int32(canvas.Height), int32(fps))
	if err != nil {
		return nil, fmt.Errorf("create video %s: %w", path, err)
	}
	return &Video{canvas: canvas, out: out, opts: jpeg.Options{Quality: 90}}, nil
}

// Keep retains the frames of the given ticks so they can be combined later.
func (v *Video) Keep(ticks ...int) {
	v.keep = append(v.keep, ticks...)
}

// Kept returns the retained frames in the order they were drawn.
func (v *Video) Kept() []*image.RGBA { return v.kept }

// Frames is the number of frames written.
func (v *Video) Frames() int { return v.frames }

func (v *Video) Observe(row sim.Row, agents []sim.AgentRecord) error {
	if agents == nil {
		return nil
	}
	if v.canvas.Extent == nil {
		v.canvas.Extent = ExtentOf(agents)
	}
	img := v.canvas.Frame(agents, row.Tick)
	if slices.Contains(v.keep, row.Tick) {
		v.kept = append(v.kept, img)
	}

	if err := jpeg.Encode(&v.buf, img, &v.opts); err != nil {
		return fmt.Errorf("encode frame %d: %w", row.Tick, err)
	}
	defer v.buf.Reset()
	if err := v.out.AddFrame(v.buf.Bytes()); err != nil {
		return fmt.Errorf("add frame %d: %w", row.Tick, err)
	}
	v.frames++
	return nil
}

// Close finalizes the AVI index.
func (v *Video) Close() error {
	return v.out.Close()
}
