package game

import (
	"math"
	"strconv"
)

// Ball is a single golf ball's physics state.
type Ball struct {
	Position Vec2    `json:"position"`
	Velocity Vec2    `json:"velocity"`
	Radius   float64 `json:"radius"`
	Roll     float64 `json:"roll"` // cosmetic roll angle in radians

	previous  Vec2   // position before the last integration
	arrivedAt string // teleporter the ball last arrived in, until it leaves
}

// NewBall places a resting ball at pos.
func NewBall(pos Vec2, radius float64) *Ball {
	return &Ball{Position: pos, Radius: radius, previous: pos}
}

// Speed returns the magnitude of the ball's velocity.
func (b *Ball) Speed() float64 {
	return b.Velocity.Magnitude()
}

// Place moves the ball to pos and stops it.
func (b *Ball) Place(pos Vec2) {
	b.Position = pos
	b.previous = pos
	b.Velocity = Vec2{}
	b.arrivedAt = ""
}

// Snapshot is the read-only view of a ball exchanged with other players.
type Snapshot struct {
	PlayerID string  `json:"player_id"`
	Position Vec2    `json:"position"`
	Velocity Vec2    `json:"velocity"`
	Radius   float64 `json:"radius"`
}

// Contact kinds that are not obstacle kinds.
const (
	ContactWall = "wall"
	ContactBall = "ball"
)

// Contact records one collision for sound and animation.
type Contact struct {
	Kind     string  `json:"kind"`
	TargetID string  `json:"target_id,omitempty"`
	Speed    float64 `json:"speed"` // impact speed
}

// Events is what the resolver observed during one tick.
type Events struct {
	EnteredWater        bool      `json:"entered_water"`
	WaterID             string    `json:"water_id,omitempty"`
	Teleported          bool      `json:"teleported"`
	TeleportFrom        string    `json:"teleport_from,omitempty"`
	TeleportTo          string    `json:"teleport_to,omitempty"`
	MissingTeleportPair bool      `json:"missing_teleport_pair"`
	HitBumper           bool      `json:"hit_bumper"`
	HitWindmill         bool      `json:"hit_windmill"`
	HitMovingWall       bool      `json:"hit_moving_wall"`
	HitWall             bool      `json:"hit_wall"`
	HitBall             bool      `json:"hit_ball"`
	InSand              bool      `json:"in_sand"`
	Stopped             bool      `json:"stopped"`
	NonFinite           bool      `json:"non_finite"`
	Contacts            []Contact `json:"contacts,omitempty"`
}

func (e *Events) contact(kind, target string, speed float64) {
	e.Contacts = append(e.Contacts, Contact{Kind: kind, TargetID: target, Speed: speed})
}

// Integrate advances the ball by one fixed step and applies global friction.
func Integrate(b *Ball, friction float64) {
	b.previous = b.Position
	b.Position = b.Position.Plus(b.Velocity)
	if b.Radius > 0 {
		b.Roll = math.Mod(b.Roll+b.Velocity.Magnitude()/b.Radius, 2*math.Pi)
	}
	b.Velocity = b.Velocity.Times(friction)
}

// Resolver applies obstacle, ball and wall collisions to an integrated ball.
type Resolver struct {
	physics Physics
}

func NewResolver(p Physics) *Resolver {
	return &Resolver{physics: p.withDefaults()}
}

// Resolve corrects b against the arena, opponent snapshots and walls, in that
// order, then snaps slow balls to rest.
func (r *Resolver) Resolve(b *Ball, arena *Arena, walls []Wall, opponents []Snapshot) Events {
	var ev Events

	r.releaseTeleportLock(b, arena)

	for i := 0; i < arena.Len(); i++ {
		o := arena.Obstacle(i)
		switch o.Kind {
		case KindSand:
			r.resolveSand(b, o, &ev)
		case KindWater:
			r.resolveWater(b, o, &ev)
		case KindRamp:
			// ramps only matter to the hazard check
		case KindBumper:
			r.resolveBumper(b, o, &ev)
		case KindWindmill:
			r.resolveWindmill(b, arena, i, &ev)
		case KindMovingWall:
			r.resolveMovingWall(b, arena, i, &ev)
		case KindTeleporter:
			r.resolveTeleporter(b, arena, i, &ev)
		}
	}

	for _, s := range opponents {
		r.resolveBall(b, s, &ev)
	}

	for i, w := range walls {
		r.resolveWall(b, w, i, &ev)
	}

	if b.Velocity.Magnitude() < r.physics.MinVelocity {
		b.Velocity = Vec2{}
		ev.Stopped = true
	}
	return ev
}

func (r *Resolver) releaseTeleportLock(b *Ball, arena *Arena) {
	if b.arrivedAt == "" {
		return
	}
	i, ok := arena.Lookup(b.arrivedAt)
	if !ok || !arena.Obstacle(i).Shape.Circle.Contains(b.Position) {
		b.arrivedAt = ""
	}
}

func (r *Resolver) resolveWall(b *Ball, w Wall, index int, ev *Events) {
	n, depth, ok := segmentContact(w.Start, w.End, w.Thickness, b.Position, b.Radius, b.previous)
	if !ok {
		return
	}
	b.Position = b.Position.Plus(n.Times(depth + r.physics.ContactEpsilon))
	if vn := b.Velocity.Dot(n); vn < 0 {
		ev.contact(ContactWall, wallID(index), -vn)
		b.Velocity = b.Velocity.Reflect(n).Times(r.physics.WallBounce)
	}
	ev.HitWall = true
}

func (r *Resolver) resolveBall(b *Ball, s Snapshot, ev *Events) {
	if !s.Position.IsFinite() || !s.Velocity.IsFinite() {
		return
	}
	radius := s.Radius
	if radius <= 0 {
		radius = b.Radius
	}
	d := b.Position.Minus(s.Position)
	dist := d.Magnitude()
	reach := b.Radius + radius
	if dist >= reach {
		return
	}
	n := outward(d, dist, b.Velocity)
	b.Position = s.Position.Plus(n.Times(reach + r.physics.ContactEpsilon))

	rel := b.Velocity.Minus(s.Velocity)
	if vn := rel.Dot(n); vn < 0 {
		// equal masses; only the local ball is ours to change
		b.Velocity = b.Velocity.Minus(n.Times((1 + r.physics.BallBallRestitution) / 2 * vn))
		ev.contact(ContactBall, s.PlayerID, -vn)
	}
	ev.HitBall = true
}

// segmentContact returns the outward normal and penetration depth of a circle
// against a thick segment. Within the segment's span the normal points to the
// side ref lies on, and a centre that crossed the segment since ref is pushed
// back to that side. Past an endpoint the normal points away from the endpoint.
func segmentContact(start, end Vec2, thickness float64, center Vec2, radius float64, ref Vec2) (Vec2, float64, bool) {
	seg := end.Minus(start)
	lenSq := seg.MagnitudeSquared()
	reach := radius + thickness/2

	if lenSq == 0 {
		d := center.Minus(start)
		dist := d.Magnitude()
		if dist >= reach {
			return Vec2{}, 0, false
		}
		return outward(d, dist, Vec2{}), reach - dist, true
	}

	perp := seg.LeftNormal().Normalize()
	refSide := ref.Minus(start).Dot(perp)
	curSide := center.Minus(start).Dot(perp)
	if refSide < 0 || (refSide == 0 && curSide < 0) {
		perp = perp.Invert()
		refSide, curSide = -refSide, -curSide
	}

	if refSide > 0 && curSide <= 0 {
		ext := seg.Normalize().Times(reach)
		if _, hit := SegmentsIntersect(ref, center, start.Minus(ext), end.Plus(ext)); hit {
			return perp, reach - curSide, true
		}
	}

	raw := center.Minus(start).Dot(seg) / lenSq
	cp := start.Plus(seg.Times(clamp(raw, 0, 1)))
	d := center.Minus(cp)
	dist := d.Magnitude()
	if dist >= reach {
		return Vec2{}, 0, false
	}
	if raw < 0 || raw > 1 {
		return outward(d, dist, Vec2{}), reach - dist, true
	}
	return perp, reach - curSide, true
}

// outward normalizes d, falling back to the reverse of the travel direction and
// then to straight up when the centres coincide.
func outward(d Vec2, dist float64, velocity Vec2) Vec2 {
	if dist > 0 {
		return d.Times(1 / dist)
	}
	if n := velocity.Invert().Normalize(); !n.IsZero() {
		return n
	}
	return Vec2{Y: -1}
}

func wallID(i int) string {
	return "wall:" + strconv.Itoa(i)
}
