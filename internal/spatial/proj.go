package spatial

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// LongLat is the spatial reference of raw device pings.
const LongLat = "+proj=longlat +units=degrees"

// WebMercator is the spherical mercator used by web maps; units are metres.
const WebMercator = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"

// Projector converts longitude/latitude points into a planar reference system
// so that exposure distances can be expressed in that system's units.
type Projector struct {
	def   string
	trans proj.Transformer
}

// NewProjector builds a projector from longitude/latitude into the reference
// system described by the PROJ.4 string target.
func NewProjector(target string) (*Projector, error) {
	if target == "" {
		return nil, ErrEmptyProjection
	}
	src, err := proj.Parse(LongLat)
	if err != nil {
		return nil, fmt.Errorf("parse source projection: %w", err)
	}
	dst, err := proj.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target projection %q: %w", target, err)
	}
	trans, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("create transform: %w", err)
	}
	return &Projector{def: target, trans: trans}, nil
}

// Definition returns the target PROJ.4 string.
func (p *Projector) Definition() string {
	return p.def
}

// Project transforms a point given as (longitude, latitude).
func (p *Projector) Project(pt geom.Point) (geom.Point, error) {
	g, err := pt.Transform(p.trans)
	if err != nil {
		return geom.Point{}, fmt.Errorf("project (%v, %v): %w", pt.X, pt.Y, err)
	}
	switch out := g.(type) {
	case geom.Point:
		return out, nil
	case *geom.Point:
		return *out, nil
	default:
		return geom.Point{}, fmt.Errorf("%w: %T", ErrUnexpectedGeometry, g)
	}
}
