package game

import "fmt"

// HazardReset selects where a ball goes after entering water.
type HazardReset string

const (
	ResetLastSafe HazardReset = "last_safe"
	ResetTee      HazardReset = "tee"
)

// Wall is a thick boundary segment.
type Wall struct {
	Start     Vec2    `json:"start" yaml:"start"`
	End       Vec2    `json:"end" yaml:"end"`
	Thickness float64 `json:"thickness" yaml:"thickness"`
}

// Hole is the cup a ball must drop into.
type Hole struct {
	Position Vec2    `json:"position" yaml:"position"`
	Radius   float64 `json:"radius" yaml:"radius"`
}

// Course holds the immutable geometry of one hole.
type Course struct {
	Name        string      `json:"name"`
	Par         int         `json:"par"`
	Tee         Vec2        `json:"tee"`
	Hole        Hole        `json:"hole"`
	BallRadius  float64     `json:"ball_radius"`
	HazardReset HazardReset `json:"hazard_reset"`
	Walls       []Wall      `json:"walls"`
	Obstacles   []Obstacle  `json:"obstacles"`
}

// BoundaryWalls returns the four walls enclosing r, each centred on an edge.
func BoundaryWalls(r Rect, thickness float64) []Wall {
	tl := r.Min()
	br := r.Max()
	tr := Vec2{X: br.X, Y: tl.Y}
	bl := Vec2{X: tl.X, Y: br.Y}
	return []Wall{
		{Start: tl, End: tr, Thickness: thickness},
		{Start: tr, End: br, Thickness: thickness},
		{Start: br, End: bl, Thickness: thickness},
		{Start: bl, End: tl, Thickness: thickness},
	}
}

// Validate checks shapes, id uniqueness and teleporter pairing.
func (c *Course) Validate() error {
	if c.BallRadius < 0 || c.Hole.Radius < 0 {
		return fmt.Errorf("course %q: %w: negative radius", c.Name, ErrInvalidGeometry)
	}
	for i, w := range c.Walls {
		if w.Thickness < 0 {
			return fmt.Errorf("course %q: wall %d: %w: negative thickness", c.Name, i, ErrInvalidGeometry)
		}
	}

	byID := make(map[string]Obstacle, len(c.Obstacles))
	for _, o := range c.Obstacles {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("course %q: %w", c.Name, err)
		}
		if o.ID == "" {
			continue
		}
		if _, dup := byID[o.ID]; dup {
			return fmt.Errorf("course %q: %w: %q", c.Name, ErrDuplicateObstacle, o.ID)
		}
		byID[o.ID] = o
	}

	for _, o := range c.Obstacles {
		if o.Kind != KindTeleporter {
			continue
		}
		if o.ID == "" || o.Pair == "" || o.Pair == o.ID {
			return fmt.Errorf("course %q: %w: %q -> %q", c.Name, ErrTeleporterPair, o.ID, o.Pair)
		}
		pair, ok := c.Teleporter(o.Pair)
		if !ok || pair.Pair != o.ID {
			return fmt.Errorf("course %q: %w: %q -> %q", c.Name, ErrTeleporterPair, o.ID, o.Pair)
		}
	}
	return nil
}

// Teleporter returns the teleporter with the given id.
func (c *Course) Teleporter(id string) (Obstacle, bool) {
	for _, o := range c.Obstacles {
		if o.ID == id && o.Kind == KindTeleporter {
			return o, true
		}
	}
	return Obstacle{}, false
}

// withDefaults returns a copy with unset radii, reset policy and obstacle
// parameters filled in.
func (c Course) withDefaults() Course {
	if c.BallRadius == 0 {
		c.BallRadius = DefaultBallRadius
	}
	if c.Hole.Radius == 0 {
		c.Hole.Radius = DefaultHoleRadius
	}
	if c.HazardReset == "" {
		c.HazardReset = ResetLastSafe
	}
	walls := make([]Wall, len(c.Walls))
	copy(walls, c.Walls)
	c.Walls = walls
	obstacles := make([]Obstacle, len(c.Obstacles))
	for i, o := range c.Obstacles {
		obstacles[i] = o.withDefaults()
	}
	c.Obstacles = obstacles
	return c
}

// OverRamp reports whether p lies over any ramp.
func (c *Course) OverRamp(p Vec2) bool {
	for _, o := range c.Obstacles {
		if o.Kind == KindRamp && o.Shape.Rect.Contains(p) {
			return true
		}
	}
	return false
}
