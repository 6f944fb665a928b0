package levels

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/game"
)

var (
	ErrInvalidLevel = errors.New("invalid level")
	ErrNotFound     = errors.New("level not found")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Document is the YAML authoring format for one hole. When Bounds is set,
// four boundary walls of WallThickness are generated around it in addition
// to any explicit walls.
type Document struct {
	Slug          string           `yaml:"slug"`
	Name          string           `yaml:"name"`
	Par           int              `yaml:"par"`
	Position      int              `yaml:"position"`
	Bounds        *game.Rect       `yaml:"bounds,omitempty"`
	WallThickness float64          `yaml:"wall_thickness,omitempty"`
	Tee           game.Vec2        `yaml:"tee"`
	Hole          game.Hole        `yaml:"hole"`
	BallRadius    float64          `yaml:"ball_radius,omitempty"`
	HazardReset   game.HazardReset `yaml:"hazard_reset,omitempty"`
	Walls         []game.Wall      `yaml:"walls,omitempty"`
	Obstacles     []game.Obstacle  `yaml:"obstacles,omitempty"`
}

// Level is a validated hole ready to be played.
type Level struct {
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Par         int         `json:"par"`
	Position    int         `json:"position"`
	Fingerprint string      `json:"fingerprint"`
	Course      game.Course `json:"course"`
}

// Parse decodes one YAML document. Unknown keys are rejected so typos in
// obstacle parameters do not silently fall back to defaults.
func Parse(r io.Reader) (Document, error) {
	var d Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	return d, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(b []byte) (Document, error) {
	return Parse(bytes.NewReader(b))
}

// Level converts the document into a validated level.
func (d Document) Level() (Level, error) {
	if !slugPattern.MatchString(d.Slug) {
		return Level{}, fmt.Errorf("%w: slug %q", ErrInvalidLevel, d.Slug)
	}
	par := d.Par
	if par <= 0 {
		par = 3
	}
	name := d.Name
	if name == "" {
		name = d.Slug
	}

	c := game.Course{
		Name:        name,
		Par:         par,
		Tee:         d.Tee,
		Hole:        d.Hole,
		BallRadius:  d.BallRadius,
		HazardReset: d.HazardReset,
		Obstacles:   d.Obstacles,
	}
	if d.Bounds != nil {
		t := d.WallThickness
		if t <= 0 {
			t = game.DefaultWallThickness
		}
		c.Walls = append(c.Walls, game.BoundaryWalls(*d.Bounds, t)...)
	}
	for _, w := range d.Walls {
		if w.Thickness == 0 {
			w.Thickness = game.DefaultWallThickness
		}
		c.Walls = append(c.Walls, w)
	}

	switch c.HazardReset {
	case "", game.ResetLastSafe, game.ResetTee:
	default:
		return Level{}, fmt.Errorf("%w: %s: hazard_reset %q", ErrInvalidLevel, d.Slug, c.HazardReset)
	}
	if err := c.Validate(); err != nil {
		return Level{}, fmt.Errorf("%w: %s: %w", ErrInvalidLevel, d.Slug, err)
	}

	fp, err := Fingerprint(c)
	if err != nil {
		return Level{}, err
	}
	return Level{
		Slug:        d.Slug,
		Name:        name,
		Par:         par,
		Position:    d.Position,
		Fingerprint: fp,
		Course:      c,
	}, nil
}

// Fingerprint hashes the course geometry so clients and caches can tell
// whether a level changed.
func Fingerprint(c game.Course) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode course: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(b)), nil
}
