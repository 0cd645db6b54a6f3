package annotation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ShapeKind discriminates the interchange geometry variants a Feature can
// carry alongside its bounds.
type ShapeKind string

const (
	ShapePoint   ShapeKind = "point"
	ShapeLine    ShapeKind = "line"
	ShapePolygon ShapeKind = "polygon"
)

// Shape is one interchange geometry attached to a feature. Key scopes the
// shape to the recipe that owns it; the empty key is the default geometry
// layer. Points are image-space coordinates.
type Shape struct {
	Key    string
	Kind   ShapeKind
	Points []r2.Vec
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	out := Shape{Key: s.Key, Kind: s.Kind}
	if len(s.Points) > 0 {
		out.Points = make([]r2.Vec, len(s.Points))
		copy(out.Points, s.Points)
	}
	return out
}

// Polygon is a closed ring of image-space vertices. The closing edge from
// the last vertex back to the first is implied.
type Polygon []r2.Vec

// Bounds returns the axis-aligned bounding rectangle of the polygon and
// false when the polygon has no vertices.
func (p Polygon) Bounds() (Rect, bool) {
	if len(p) == 0 {
		return Rect{}, false
	}
	r := Rect{MinX: p[0].X, MinY: p[0].Y, MaxX: p[0].X, MaxY: p[0].Y}
	for _, v := range p[1:] {
		r.MinX = math.Min(r.MinX, v.X)
		r.MinY = math.Min(r.MinY, v.Y)
		r.MaxX = math.Max(r.MaxX, v.X)
		r.MaxY = math.Max(r.MaxY, v.Y)
	}
	return r, true
}

// Centroid returns the vertex centroid of the polygon.
func (p Polygon) Centroid() r2.Vec {
	var c r2.Vec
	if len(p) == 0 {
		return c
	}
	for _, v := range p {
		c = r2.Add(c, v)
	}
	return r2.Scale(1/float64(len(p)), c)
}

// Rect is an axis-aligned rectangle in image space. Min and Max are
// inclusive corners; a degenerate rect (point or segment) is valid.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// RectFromPoints builds the bounding rect of a point set. Returns false
// when pts is empty.
func RectFromPoints(pts []r2.Vec) (Rect, bool) {
	return Polygon(pts).Bounds()
}

// Union returns the smallest rect covering both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, other.MinX),
		MinY: math.Min(r.MinY, other.MinY),
		MaxX: math.Max(r.MaxX, other.MaxX),
		MaxY: math.Max(r.MaxY, other.MaxY),
	}
}

// Contains reports whether the point lies inside or on the rect boundary.
func (r Rect) Contains(p r2.Vec) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Width returns the rect width.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the rect height.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Center returns the rect midpoint.
func (r Rect) Center() r2.Vec {
	return r2.Vec{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// AsPolygon returns the rect corners as a closed ring, clockwise from the
// min corner.
func (r Rect) AsPolygon() Polygon {
	return Polygon{
		{X: r.MinX, Y: r.MinY},
		{X: r.MaxX, Y: r.MinY},
		{X: r.MaxX, Y: r.MaxY},
		{X: r.MinX, Y: r.MaxY},
	}
}

// UnionPolygons folds a set of polygons into base. When base is nil the
// first polygon's bounds seed the result. Empty polygons are skipped.
func UnionPolygons(base *Rect, polys []Polygon) *Rect {
	out := base
	for _, p := range polys {
		b, ok := p.Bounds()
		if !ok {
			continue
		}
		if out == nil {
			r := b
			out = &r
		} else {
			r := out.Union(b)
			out = &r
		}
	}
	return out
}

// BoundsOfPolygons returns the bounding rect of all polygons, or nil when
// none of them has vertices.
func BoundsOfPolygons(polys []Polygon) *Rect {
	return UnionPolygons(nil, polys)
}

// interpolateRect linearly interpolates between two rects. t is clamped
// to [0, 1].
func interpolateRect(a, b Rect, t float64) Rect {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	lerp := func(x, y float64) float64 { return x + (y-x)*t }
	return Rect{
		MinX: lerp(a.MinX, b.MinX),
		MinY: lerp(a.MinY, b.MinY),
		MaxX: lerp(a.MaxX, b.MaxX),
		MaxY: lerp(a.MaxY, b.MaxY),
	}
}
