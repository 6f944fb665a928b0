package game

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

func (r Rect) Min() Vec2 { return Vec2{X: r.X, Y: r.Y} }

func (r Rect) Max() Vec2 { return Vec2{X: r.X + r.Width, Y: r.Y + r.Height} }

func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Translate returns the rectangle shifted by d.
func (r Rect) Translate(d Vec2) Rect {
	return Rect{X: r.X + d.X, Y: r.Y + d.Y, Width: r.Width, Height: r.Height}
}

// Contains reports whether p lies inside the rectangle, edges included.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// ClosestPoint clamps p into the rectangle.
func (r Rect) ClosestPoint(p Vec2) Vec2 {
	return Vec2{
		X: clamp(p.X, r.X, r.X+r.Width),
		Y: clamp(p.Y, r.Y, r.Y+r.Height),
	}
}

// Circle is a centre and radius.
type Circle struct {
	Center Vec2    `json:"center" yaml:"center"`
	Radius float64 `json:"radius" yaml:"radius"`
}

func (c Circle) Contains(p Vec2) bool {
	return Distance(c.Center, p) < c.Radius
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// segmentT returns the clamped projection parameter of p onto start→end.
// A zero-length segment yields 0.
func segmentT(start, end, p Vec2) float64 {
	seg := end.Minus(start)
	lenSq := seg.MagnitudeSquared()
	if lenSq == 0 {
		return 0
	}
	return clamp(p.Minus(start).Dot(seg)/lenSq, 0, 1)
}

// ClosestPointOnSegment returns the point of segment start→end nearest to p.
// For a zero-length segment it returns start.
func ClosestPointOnSegment(start, end, p Vec2) Vec2 {
	t := segmentT(start, end, p)
	return start.Plus(end.Minus(start).Times(t))
}

// SegmentCircleIntersect tests a circle against a segment drawn with the given thickness.
func SegmentCircleIntersect(start, end Vec2, thickness float64, center Vec2, radius float64) bool {
	cp := ClosestPointOnSegment(start, end, center)
	return Distance(cp, center) < radius+thickness/2
}

// SegmentsIntersect returns the crossing point of segments p1→p2 and p3→p4.
// Parallel segments never intersect.
func SegmentsIntersect(p1, p2, p3, p4 Vec2) (Vec2, bool) {
	r := p2.Minus(p1)
	s := p4.Minus(p3)
	denom := r.X*s.Y - r.Y*s.X
	if denom == 0 {
		return Vec2{}, false
	}
	q := p3.Minus(p1)
	t := (q.X*s.Y - q.Y*s.X) / denom
	u := (q.X*r.Y - q.Y*r.X) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Vec2{}, false
	}
	return p1.Plus(r.Times(t)), true
}

// RectCircleIntersect tests a circle against a rectangle using the clamped closest point.
func RectCircleIntersect(r Rect, center Vec2, radius float64) bool {
	cp := r.ClosestPoint(center)
	dx := center.X - cp.X
	dy := center.Y - cp.Y
	return dx*dx+dy*dy < radius*radius
}

// rectContactNormal returns the outward normal and penetration depth of a circle
// overlapping r. A centre inside the rectangle exits through the nearest edge.
func rectContactNormal(r Rect, center Vec2, radius float64) (Vec2, float64) {
	cp := r.ClosestPoint(center)
	d := center.Minus(cp)
	if dist := d.Magnitude(); dist > 0 {
		return d.Times(1 / dist), radius - dist
	}

	left := center.X - r.X
	right := r.X + r.Width - center.X
	top := center.Y - r.Y
	bottom := r.Y + r.Height - center.Y

	n, depth := Vec2{X: -1}, left
	if right < depth {
		n, depth = Vec2{X: 1}, right
	}
	if top < depth {
		n, depth = Vec2{Y: -1}, top
	}
	if bottom < depth {
		n, depth = Vec2{Y: 1}, bottom
	}
	return n, depth + radius
}
