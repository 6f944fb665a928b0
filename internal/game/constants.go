package game

// Physics and course defaults for minigolf.
// Units are course units per tick for ball motion and seconds for obstacle phases.

const (
	Friction            = 0.985
	MinVelocity         = 0.05
	WallBounce          = 0.75
	CaptureSpeed        = 4.0
	MaxPower            = 20.0
	ContactEpsilon      = 0.01
	BallBallRestitution = 0.9

	DefaultBallRadius      = 8.0
	DefaultHoleRadius      = 12.0
	DefaultWallThickness   = 10.0
	DefaultSandFriction    = 0.95
	DefaultBumperBounce    = 1.5
	DefaultBladeThickness  = 6.0
	DefaultWindmillPush    = 2.5
	DefaultMovingWallSpeed = 60.0
	DefaultMovingWallAmp   = 80.0

	WindmillBlades = 4
)

// Physics holds the global tuning shared by every ball on a course.
type Physics struct {
	Friction            float64 `json:"friction"`
	MinVelocity         float64 `json:"min_velocity"`
	WallBounce          float64 `json:"wall_bounce"`
	CaptureSpeed        float64 `json:"capture_speed"`
	MaxPower            float64 `json:"max_power"`
	ContactEpsilon      float64 `json:"contact_epsilon"`
	BallBallRestitution float64 `json:"ball_ball_restitution"`
}

// DefaultPhysics returns the reference tuning.
func DefaultPhysics() Physics {
	return Physics{
		Friction:            Friction,
		MinVelocity:         MinVelocity,
		WallBounce:          WallBounce,
		CaptureSpeed:        CaptureSpeed,
		MaxPower:            MaxPower,
		ContactEpsilon:      ContactEpsilon,
		BallBallRestitution: BallBallRestitution,
	}
}

// withDefaults fills zero fields from DefaultPhysics.
func (p Physics) withDefaults() Physics {
	d := DefaultPhysics()
	if p.Friction <= 0 || p.Friction >= 1 {
		p.Friction = d.Friction
	}
	if p.MinVelocity <= 0 {
		p.MinVelocity = d.MinVelocity
	}
	if p.WallBounce <= 0 {
		p.WallBounce = d.WallBounce
	}
	if p.CaptureSpeed <= 0 {
		p.CaptureSpeed = d.CaptureSpeed
	}
	if p.MaxPower <= 0 {
		p.MaxPower = d.MaxPower
	}
	if p.ContactEpsilon <= 0 {
		p.ContactEpsilon = d.ContactEpsilon
	}
	if p.BallBallRestitution <= 0 {
		p.BallBallRestitution = d.BallBallRestitution
	}
	return p
}
