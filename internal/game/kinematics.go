package game

import "math"

// Phase is the time-varying state of one obstacle instance.
type Phase struct {
	Angle     float64 `json:"angle"`
	Offset    float64 `json:"offset"`
	Direction float64 `json:"direction"`
}

// AdvancePhase moves a phase forward by dt seconds. Only windmills and moving
// walls change; every other kind returns p unchanged.
func AdvancePhase(o Obstacle, p Phase, dt float64) Phase {
	switch o.Kind {
	case KindWindmill:
		p.Angle += o.Speed * dt
	case KindMovingWall:
		if p.Direction == 0 {
			p.Direction = 1
		}
		p.Offset += o.Speed * p.Direction * dt
		if math.Abs(p.Offset) > o.Amplitude {
			p.Offset = math.Copysign(o.Amplitude, p.Offset)
			p.Direction = -p.Direction
		}
	}
	return p
}

// Arena owns the obstacle instances of one hole in declaration order, each
// with its own phase.
type Arena struct {
	obstacles []Obstacle
	phases    []Phase
	index     map[string]int
}

// NewArena builds an arena from already-defaulted obstacles.
func NewArena(obstacles []Obstacle) *Arena {
	a := &Arena{
		obstacles: obstacles,
		phases:    make([]Phase, len(obstacles)),
		index:     make(map[string]int, len(obstacles)),
	}
	for i, o := range obstacles {
		if o.Kind == KindMovingWall {
			a.phases[i].Direction = 1
		}
		if o.ID != "" {
			a.index[o.ID] = i
		}
	}
	return a
}

func (a *Arena) Len() int { return len(a.obstacles) }

func (a *Arena) Obstacle(i int) Obstacle { return a.obstacles[i] }

func (a *Arena) Phase(i int) Phase { return a.phases[i] }

// Lookup returns the arena index of the obstacle with the given id.
func (a *Arena) Lookup(id string) (int, bool) {
	i, ok := a.index[id]
	return i, ok
}

// Advance moves every kinematic obstacle forward by dt seconds.
func (a *Arena) Advance(dt float64) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}
	for i, o := range a.obstacles {
		if o.Kind.IsKinematic() {
			a.phases[i] = AdvancePhase(o, a.phases[i], dt)
		}
	}
}

// Phases returns a copy of all phases keyed by obstacle id, for renderers.
func (a *Arena) Phases() map[string]Phase {
	out := make(map[string]Phase, len(a.index))
	for id, i := range a.index {
		out[id] = a.phases[i]
	}
	return out
}

// SetPhase overwrites the phase of the obstacle with the given id.
func (a *Arena) SetPhase(id string, p Phase) bool {
	i, ok := a.index[id]
	if !ok {
		return false
	}
	a.phases[i] = p
	return true
}

// MovingWallRect returns the rectangle of moving wall i at its current offset.
func (a *Arena) MovingWallRect(i int) Rect {
	o := a.obstacles[i]
	off := a.phases[i].Offset
	if o.Axis == AxisX {
		return o.Shape.Rect.Translate(Vec2{X: off})
	}
	return o.Shape.Rect.Translate(Vec2{Y: off})
}

// Geometry returns the current world-space shape of obstacle i. Only moving
// walls differ from their declared shape.
func (a *Arena) Geometry(i int) Shape {
	o := a.obstacles[i]
	if o.Kind != KindMovingWall {
		return o.Shape
	}
	return Shape{Type: ShapeRect, Rect: a.MovingWallRect(i)}
}

// Blade is one windmill arm from the pivot to its tip.
type Blade struct {
	Start Vec2
	End   Vec2
	Angle float64
}

// WindmillBlades returns the blades of windmill i at its current angle.
func (a *Arena) WindmillBlades(i int) [WindmillBlades]Blade {
	o := a.obstacles[i]
	c := o.Shape.Circle.Center
	var blades [WindmillBlades]Blade
	for b := 0; b < WindmillBlades; b++ {
		angle := a.phases[i].Angle + float64(b)*math.Pi/2
		blades[b] = Blade{Start: c, End: c.Plus(FromAngle(angle, o.BladeLength)), Angle: angle}
	}
	return blades
}
