package game

// TickResult is everything one tick produced for renderers and the network layer.
type TickResult struct {
	Tick             uint64    `json:"tick"`
	Previous         BallState `json:"previous"`
	State            BallState `json:"state"`
	Transitioned     bool      `json:"transitioned"`
	Ball             Ball      `json:"ball"`
	Events           Events    `json:"events"`
	Holed            bool      `json:"holed"`
	Hazard           bool      `json:"hazard"`
	HazardSuppressed bool      `json:"hazard_suppressed"`
	PenaltyStroke    bool      `json:"penalty_stroke"`
}

// Simulation drives one ball around one hole. It is not safe for concurrent
// use; the owner serializes calls.
type Simulation struct {
	course    Course
	physics   Physics
	resolver  *Resolver
	arena     *Arena
	ball      *Ball
	machine   *Machine
	lastSafe  Vec2
	opponents []Snapshot
	ticks     uint64

	// balls the current shot started inside of, ignored until they separate
	launched bool
	overlap  map[string]bool
}

// NewSimulation validates the course and places a resting ball on the tee.
func NewSimulation(c Course, p Physics) (*Simulation, error) {
	p = p.withDefaults()
	s := &Simulation{
		physics:  p,
		resolver: NewResolver(p),
		machine:  NewMachine(),
		overlap:  make(map[string]bool),
	}
	if err := s.ResetHole(c); err != nil {
		return nil, err
	}
	return s, nil
}

// ResetHole discards the current ball and obstacle phases and starts c from its tee.
func (s *Simulation) ResetHole(c Course) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c = c.withDefaults()
	s.course = c
	s.arena = NewArena(c.Obstacles)
	s.ball = NewBall(c.Tee, c.BallRadius)
	s.machine.Reset()
	s.lastSafe = c.Tee
	s.opponents = nil
	s.ticks = 0
	s.launched = false
	clear(s.overlap)
	return nil
}

func (s *Simulation) State() BallState { return s.machine.State() }

func (s *Simulation) Ball() Ball { return *s.ball }

func (s *Simulation) Course() Course { return s.course }

func (s *Simulation) Physics() Physics { return s.physics }

// Phases returns the current obstacle phases keyed by obstacle id.
func (s *Simulation) Phases() map[string]Phase { return s.arena.Phases() }

// SyncPhases copies obstacle phases by id, so a simulation started late can
// match others already running the same hole.
func (s *Simulation) SyncPhases(phases map[string]Phase) {
	for id, p := range phases {
		s.arena.SetPhase(id, p)
	}
}

// Snapshot returns the ball as other players see it.
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{Position: s.ball.Position, Velocity: s.ball.Velocity, Radius: s.ball.Radius}
}

// SetOpponents replaces the remote balls this ball can bump into.
func (s *Simulation) SetOpponents(snaps []Snapshot) {
	s.opponents = append(s.opponents[:0], snaps...)
}

func (s *Simulation) BeginAim() error { return s.machine.BeginAim() }

func (s *Simulation) CancelAim() error { return s.machine.CancelAim() }

// Shoot launches a resting or aiming ball.
func (s *Simulation) Shoot(shot Shot) error {
	v, err := shot.Velocity(s.physics.MaxPower)
	if err != nil {
		return err
	}
	if err := s.machine.Shoot(); err != nil {
		return err
	}
	s.lastSafe = s.ball.Position
	s.ball.Velocity = v
	s.launched = true
	clear(s.overlap)
	return nil
}

// Tick advances obstacles by dt seconds and, while rolling, the ball by one step.
func (s *Simulation) Tick(dt float64) TickResult {
	s.ticks++
	res := TickResult{Tick: s.ticks, Previous: s.machine.State()}

	s.arena.Advance(dt)

	switch res.Previous {
	case StateHazardRecovery:
		mustTransition(s.machine.Recover())
	case StateRolling:
		s.roll(&res)
	}

	res.State = s.machine.State()
	res.Transitioned = res.State != res.Previous
	res.Ball = *s.ball
	return res
}

func (s *Simulation) roll(res *TickResult) {
	before := *s.ball
	opponents := s.solidOpponents()

	Integrate(s.ball, s.physics.Friction)
	ev := s.resolver.Resolve(s.ball, s.arena, s.course.Walls, opponents)

	if !s.ball.Position.IsFinite() || !s.ball.Velocity.IsFinite() {
		*s.ball = before
		s.ball.Velocity = Vec2{}
		ev = Events{NonFinite: true, Stopped: true}
	}
	res.Events = ev

	if ev.EnteredWater {
		if s.course.OverRamp(s.ball.Position) {
			res.HazardSuppressed = true
		} else {
			s.enterHazard(res)
			return
		}
	}

	if s.captured() {
		s.ball.Velocity = Vec2{}
		mustTransition(s.machine.Finish(StateHoled))
		res.Holed = true
		return
	}

	if s.ball.Velocity.IsZero() {
		mustTransition(s.machine.Finish(StateResting))
	}
}

// solidOpponents returns the opponents the ball can collide with this tick.
// Balls sharing the spot a shot starts from are passed through until the two
// no longer overlap.
func (s *Simulation) solidOpponents() []Snapshot {
	if s.launched {
		s.launched = false
		for _, o := range s.opponents {
			if o.PlayerID != "" && s.overlaps(o) {
				s.overlap[o.PlayerID] = true
			}
		}
	}
	if len(s.overlap) == 0 {
		return s.opponents
	}

	out := make([]Snapshot, 0, len(s.opponents))
	for _, o := range s.opponents {
		if s.overlap[o.PlayerID] {
			if s.overlaps(o) {
				continue
			}
			delete(s.overlap, o.PlayerID)
		}
		out = append(out, o)
	}
	return out
}

func (s *Simulation) overlaps(o Snapshot) bool {
	radius := o.Radius
	if radius <= 0 {
		radius = s.ball.Radius
	}
	return Distance(s.ball.Position, o.Position) < s.ball.Radius+radius
}

// mustTransition panics when the step driver makes a move the machine rejects.
func mustTransition(err error) {
	if err != nil {
		panic(err)
	}
}

func (s *Simulation) captured() bool {
	h := s.course.Hole
	return Distance(s.ball.Position, h.Position) < h.Radius && s.ball.Speed() < s.physics.CaptureSpeed
}

func (s *Simulation) enterHazard(res *TickResult) {
	spot := s.lastSafe
	if s.course.HazardReset == ResetTee {
		spot = s.course.Tee
	}
	s.ball.Place(spot)
	mustTransition(s.machine.Finish(StateHazardRecovery))
	res.Hazard = true
	res.PenaltyStroke = true
}
