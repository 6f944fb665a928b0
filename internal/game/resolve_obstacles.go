package game

import "math"

func (r *Resolver) resolveSand(b *Ball, o Obstacle, ev *Events) {
	if !o.Shape.Rect.Contains(b.Position) {
		return
	}
	b.Velocity = b.Velocity.Times(o.Friction)
	ev.InSand = true
}

// resolveWater only reports the hazard; the step driver decides what it costs.
func (r *Resolver) resolveWater(b *Ball, o Obstacle, ev *Events) {
	if !o.Shape.Rect.Contains(b.Position) {
		return
	}
	if !ev.EnteredWater {
		ev.WaterID = o.ID
	}
	ev.EnteredWater = true
}

func (r *Resolver) resolveBumper(b *Ball, o Obstacle, ev *Events) {
	c := o.Shape.Circle
	d := b.Position.Minus(c.Center)
	dist := d.Magnitude()
	reach := b.Radius + c.Radius
	if dist >= reach {
		return
	}
	n := outward(d, dist, b.Velocity)
	b.Position = c.Center.Plus(n.Times(reach + r.physics.ContactEpsilon))
	if vn := b.Velocity.Dot(n); vn < 0 {
		ev.contact(string(KindBumper), o.ID, -vn)
		b.Velocity = b.Velocity.Reflect(n).Times(o.Bounce)
	}
	ev.HitBumper = true
}

// resolveWindmill flings the ball off any blade it touches. The ball is moved
// clear of the blade and given an impulse across it rather than reflected.
func (r *Resolver) resolveWindmill(b *Ball, arena *Arena, i int, ev *Events) {
	o := arena.Obstacle(i)
	for _, blade := range arena.WindmillBlades(i) {
		n, depth, ok := segmentContact(blade.Start, blade.End, o.BladeThickness, b.Position, b.Radius, b.Position)
		if !ok {
			continue
		}
		b.Position = b.Position.Plus(n.Times(depth + r.physics.ContactEpsilon))
		ev.contact(string(KindWindmill), o.ID, math.Abs(b.Velocity.Dot(n)))
		b.Velocity = b.Velocity.Plus(n.Times(o.Push))
		ev.HitWindmill = true
	}
}

func (r *Resolver) resolveMovingWall(b *Ball, arena *Arena, i int, ev *Events) {
	o := arena.Obstacle(i)
	rect := arena.Geometry(i).Rect
	if !RectCircleIntersect(rect, b.Position, b.Radius) {
		return
	}
	ev.HitMovingWall = true

	if o.BounceMode == BounceNormal {
		n, depth := rectContactNormal(rect, b.Position, b.Radius)
		b.Position = b.Position.Plus(n.Times(depth + r.physics.ContactEpsilon))
		if vn := b.Velocity.Dot(n); vn < 0 {
			ev.contact(string(KindMovingWall), o.ID, -vn)
			b.Velocity = b.Velocity.Reflect(n).Times(o.Bounce)
		}
		return
	}

	// Axis-locked: a wall travelling along y bounces the ball along x and vice versa.
	eps := r.physics.ContactEpsilon
	center := rect.Center()
	if o.Axis == AxisX {
		if b.Position.Y < center.Y {
			b.Position.Y = rect.Y - b.Radius - eps
			if b.Velocity.Y > 0 {
				ev.contact(string(KindMovingWall), o.ID, b.Velocity.Y)
				b.Velocity.Y = -b.Velocity.Y * o.Bounce
			}
		} else {
			b.Position.Y = rect.Y + rect.Height + b.Radius + eps
			if b.Velocity.Y < 0 {
				ev.contact(string(KindMovingWall), o.ID, -b.Velocity.Y)
				b.Velocity.Y = -b.Velocity.Y * o.Bounce
			}
		}
		return
	}
	if b.Position.X < center.X {
		b.Position.X = rect.X - b.Radius - eps
		if b.Velocity.X > 0 {
			ev.contact(string(KindMovingWall), o.ID, b.Velocity.X)
			b.Velocity.X = -b.Velocity.X * o.Bounce
		}
	} else {
		b.Position.X = rect.X + rect.Width + b.Radius + eps
		if b.Velocity.X < 0 {
			ev.contact(string(KindMovingWall), o.ID, -b.Velocity.X)
			b.Velocity.X = -b.Velocity.X * o.Bounce
		}
	}
}

// resolveTeleporter moves a rolling ball to the paired teleporter's centre.
// At most one teleport happens per tick, and a ball that just arrived in a
// zone must leave it before that zone can send it back.
func (r *Resolver) resolveTeleporter(b *Ball, arena *Arena, i int, ev *Events) {
	o := arena.Obstacle(i)
	if ev.Teleported || b.arrivedAt == o.ID || !o.Shape.Circle.Contains(b.Position) {
		return
	}
	if b.Velocity.Magnitude() < r.physics.MinVelocity {
		return
	}

	j, ok := arena.Lookup(o.Pair)
	if !ok || o.Pair == "" || j == i || arena.Obstacle(j).Kind != KindTeleporter {
		ev.MissingTeleportPair = true
		return
	}
	dest := arena.Obstacle(j)
	b.Position = dest.Shape.Circle.Center
	b.previous = b.Position
	b.arrivedAt = dest.ID

	ev.Teleported = true
	ev.TeleportFrom = o.ID
	ev.TeleportTo = dest.ID
	ev.contact(string(KindTeleporter), o.ID, b.Velocity.Magnitude())
}
