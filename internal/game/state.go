package game

import (
	"errors"
	"fmt"
	"math"
)

// BallState is where a ball is in its shot cycle.
type BallState string

const (
	StateResting        BallState = "RESTING"
	StateAiming         BallState = "AIMING"
	StateRolling        BallState = "ROLLING"
	StateHazardRecovery BallState = "HAZARD_RECOVERY"
	StateHoled          BallState = "HOLED"
)

var (
	ErrIllegalTransition = errors.New("illegal ball state transition")
	ErrInvalidShot       = errors.New("invalid shot")
)

var transitions = map[BallState][]BallState{
	StateResting:        {StateAiming, StateRolling},
	StateAiming:         {StateResting, StateRolling},
	StateRolling:        {StateResting, StateHazardRecovery, StateHoled},
	StateHazardRecovery: {StateResting},
	StateHoled:          {},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to BallState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Shot is one stroke of input: power along angle (radians).
type Shot struct {
	Power float64 `json:"power"`
	Angle float64 `json:"angle"`
}

// Velocity returns the launch velocity with power clamped to [0, maxPower].
func (s Shot) Velocity(maxPower float64) (Vec2, error) {
	if math.IsNaN(s.Power) || math.IsInf(s.Power, 0) || math.IsNaN(s.Angle) || math.IsInf(s.Angle, 0) {
		return Vec2{}, fmt.Errorf("%w: non-finite power or angle", ErrInvalidShot)
	}
	return FromAngle(s.Angle, clamp(s.Power, 0, maxPower)), nil
}

// Machine guards the shot cycle of one ball.
type Machine struct {
	state BallState
}

func NewMachine() *Machine {
	return &Machine{state: StateResting}
}

func (m *Machine) State() BallState { return m.state }

func (m *Machine) to(next BallState) error {
	if !CanTransition(m.state, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, next)
	}
	m.state = next
	return nil
}

// BeginAim enters aiming from rest.
func (m *Machine) BeginAim() error {
	if m.state == StateAiming {
		return nil
	}
	return m.to(StateAiming)
}

// CancelAim drops back to rest without shooting.
func (m *Machine) CancelAim() error {
	if m.state != StateAiming {
		return fmt.Errorf("%w: not aiming (%s)", ErrIllegalTransition, m.state)
	}
	return m.to(StateResting)
}

// Shoot starts rolling from rest or aim.
func (m *Machine) Shoot() error {
	return m.to(StateRolling)
}

// Finish ends a roll in one of its terminal states.
func (m *Machine) Finish(next BallState) error {
	if m.state != StateRolling {
		return fmt.Errorf("%w: not rolling (%s)", ErrIllegalTransition, m.state)
	}
	return m.to(next)
}

// Recover returns a ball from hazard recovery to rest.
func (m *Machine) Recover() error {
	return m.to(StateResting)
}

// Reset forces the machine back to rest for a new hole.
func (m *Machine) Reset() {
	m.state = StateResting
}
