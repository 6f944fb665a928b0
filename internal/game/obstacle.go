package game

import (
	"errors"
	"fmt"
)

// Kind selects an obstacle's behaviour.
type Kind string

const (
	KindSand       Kind = "sand"
	KindWater      Kind = "water"
	KindRamp       Kind = "ramp"
	KindBumper     Kind = "bumper"
	KindWindmill   Kind = "windmill"
	KindMovingWall Kind = "moving_wall"
	KindTeleporter Kind = "teleporter"
)

// ShapeType is the geometry an obstacle carries.
type ShapeType string

const (
	ShapeRect   ShapeType = "rect"
	ShapeCircle ShapeType = "circle"
)

// Axis is the travel axis of a moving wall.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// BounceMode picks how a moving wall deflects the ball.
// BounceAxis reflects only the component across the travel axis;
// BounceNormal reflects about the contact normal.
type BounceMode string

const (
	BounceAxis   BounceMode = "axis"
	BounceNormal BounceMode = "normal"
)

var (
	ErrUnknownKind       = errors.New("unknown obstacle kind")
	ErrShapeMismatch     = errors.New("obstacle shape does not match its kind")
	ErrDuplicateObstacle = errors.New("duplicate obstacle id")
	ErrTeleporterPair    = errors.New("teleporter pair is not mutual")
	ErrInvalidGeometry   = errors.New("invalid geometry")
)

// Shape is either a rectangle or a circle, tagged by Type.
type Shape struct {
	Type   ShapeType `json:"type" yaml:"type"`
	Rect   Rect      `json:"rect,omitempty" yaml:"rect,omitempty"`
	Circle Circle    `json:"circle,omitempty" yaml:"circle,omitempty"`
}

func RectShape(x, y, w, h float64) Shape {
	return Shape{Type: ShapeRect, Rect: Rect{X: x, Y: y, Width: w, Height: h}}
}

func CircleShape(x, y, radius float64) Shape {
	return Shape{Type: ShapeCircle, Circle: Circle{Center: Vec2{X: x, Y: y}, Radius: radius}}
}

// Obstacle is a course element. Only the fields relevant to Kind are read.
type Obstacle struct {
	ID    string `json:"id" yaml:"id"`
	Kind  Kind   `json:"kind" yaml:"kind"`
	Shape Shape  `json:"shape" yaml:"shape"`

	// sand
	Friction float64 `json:"friction,omitempty" yaml:"friction,omitempty"`
	// bumper, and moving walls in normal mode
	Bounce float64 `json:"bounce,omitempty" yaml:"bounce,omitempty"`
	// windmill (rad/s, signed) and moving wall (units/s)
	Speed float64 `json:"speed,omitempty" yaml:"speed,omitempty"`

	// moving wall
	Amplitude  float64    `json:"amplitude,omitempty" yaml:"amplitude,omitempty"`
	Axis       Axis       `json:"axis,omitempty" yaml:"axis,omitempty"`
	BounceMode BounceMode `json:"bounce_mode,omitempty" yaml:"bounce_mode,omitempty"`

	// windmill
	BladeLength    float64 `json:"blade_length,omitempty" yaml:"blade_length,omitempty"`
	BladeThickness float64 `json:"blade_thickness,omitempty" yaml:"blade_thickness,omitempty"`
	Push           float64 `json:"push,omitempty" yaml:"push,omitempty"`

	// teleporter
	Pair string `json:"pair,omitempty" yaml:"pair,omitempty"`
}

// RequiredShape returns the shape type a kind must carry.
func (k Kind) RequiredShape() (ShapeType, error) {
	switch k {
	case KindSand, KindWater, KindRamp, KindMovingWall:
		return ShapeRect, nil
	case KindBumper, KindWindmill, KindTeleporter:
		return ShapeCircle, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

// IsKinematic reports whether the kind moves independently of the ball.
func (k Kind) IsKinematic() bool {
	return k == KindWindmill || k == KindMovingWall
}

// Validate checks the obstacle on its own; pairing is checked by Course.Validate.
func (o Obstacle) Validate() error {
	want, err := o.Kind.RequiredShape()
	if err != nil {
		return fmt.Errorf("obstacle %q: %w", o.ID, err)
	}
	if o.Shape.Type != want {
		return fmt.Errorf("obstacle %q: %w: %s needs %s, got %q", o.ID, ErrShapeMismatch, o.Kind, want, o.Shape.Type)
	}
	switch want {
	case ShapeRect:
		if o.Shape.Rect.Width <= 0 || o.Shape.Rect.Height <= 0 {
			return fmt.Errorf("obstacle %q: %w: empty rectangle", o.ID, ErrInvalidGeometry)
		}
	case ShapeCircle:
		if o.Shape.Circle.Radius <= 0 {
			return fmt.Errorf("obstacle %q: %w: non-positive radius", o.ID, ErrInvalidGeometry)
		}
	}
	if o.Kind == KindMovingWall && o.Axis != "" && o.Axis != AxisX && o.Axis != AxisY {
		return fmt.Errorf("obstacle %q: %w: axis %q", o.ID, ErrInvalidGeometry, o.Axis)
	}
	return nil
}

// withDefaults fills unset kind parameters.
func (o Obstacle) withDefaults() Obstacle {
	switch o.Kind {
	case KindSand:
		if o.Friction <= 0 {
			o.Friction = DefaultSandFriction
		}
	case KindBumper:
		if o.Bounce <= 0 {
			o.Bounce = DefaultBumperBounce
		}
	case KindWindmill:
		if o.BladeLength <= 0 {
			o.BladeLength = o.Shape.Circle.Radius
		}
		if o.BladeThickness <= 0 {
			o.BladeThickness = DefaultBladeThickness
		}
		if o.Push <= 0 {
			o.Push = DefaultWindmillPush
		}
	case KindMovingWall:
		if o.Speed == 0 {
			o.Speed = DefaultMovingWallSpeed
		}
		if o.Amplitude <= 0 {
			o.Amplitude = DefaultMovingWallAmp
		}
		if o.Axis == "" {
			o.Axis = AxisY
		}
		if o.BounceMode == "" {
			o.BounceMode = BounceAxis
		}
		if o.Bounce <= 0 {
			o.Bounce = 1
		}
	}
	return o
}
