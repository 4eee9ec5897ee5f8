package main

import (
	"fmt"
	"math/rand"
	"sort"
)

// Tuning holds the per-tick physics constants shared by every core in a world
type Tuning struct {
	GroundControlSpeed float64
	GroundControlAccel float64
	GroundFriction     float64
	GroundJumpImpulse  float64
	AirJumpImpulse     float64
	AirControlSpeed    float64
	AirControlAccel    float64
	AirFriction        float64
	Gravity            float64
	VelrampStart       float64
	VelrampRange       float64
	VelrampCurvature   float64
	PlayerCollision    float64

	GrenadeSpeed      float64
	GrenadeGravity    float64
	GrenadeElasticity float64
	GrenadeLifetime   float64 // seconds
	GunRange          float64
}

// DefaultTuning returns the stock values for the given tick rate
func DefaultTuning(tickSpeed int) Tuning {
	ts := float64(tickSpeed)
	return Tuning{
		GroundControlSpeed: 10.0,
		GroundControlAccel: 100.0 / ts,
		GroundFriction:     0.5,
		GroundJumpImpulse:  13.2,
		AirJumpImpulse:     12.0,
		AirControlSpeed:    250.0 / ts,
		AirControlAccel:    1.5,
		AirFriction:        0.95,
		Gravity:            0.5,
		VelrampStart:       550,
		VelrampRange:       2000,
		VelrampCurvature:   1.4,
		PlayerCollision:    1,

		GrenadeSpeed:      1000.0 / ts,
		GrenadeGravity:    0.35,
		GrenadeElasticity: 0.5,
		GrenadeLifetime:   2.0,
		GunRange:          800,
	}
}

func (t *Tuning) fields() map[string]*float64 {
	return map[string]*float64{
		"ground_control_speed": &t.GroundControlSpeed,
		"ground_control_accel": &t.GroundControlAccel,
		"ground_friction":      &t.GroundFriction,
		"ground_jump_impulse":  &t.GroundJumpImpulse,
		"air_jump_impulse":     &t.AirJumpImpulse,
		"air_control_speed":    &t.AirControlSpeed,
		"air_control_accel":    &t.AirControlAccel,
		"air_friction":         &t.AirFriction,
		"gravity":              &t.Gravity,
		"velramp_start":        &t.VelrampStart,
		"velramp_range":        &t.VelrampRange,
		"velramp_curvature":    &t.VelrampCurvature,
		"player_collision":     &t.PlayerCollision,
		"grenade_speed":        &t.GrenadeSpeed,
		"grenade_gravity":      &t.GrenadeGravity,
		"grenade_elasticity":   &t.GrenadeElasticity,
		"grenade_lifetime":     &t.GrenadeLifetime,
		"gun_range":            &t.GunRange,
	}
}

// Set updates a tuning value by name
func (t *Tuning) Set(name string, value float64) error {
	f, ok := t.fields()[name]
	if !ok {
		return fmt.Errorf("unknown tuning %q", name)
	}
	*f = value
	return nil
}

// Names lists the tunable parameters in sorted order
func (t *Tuning) Names() []string {
	names := make([]string, 0, len(t.fields()))
	for n := range t.fields() {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SimContext carries everything a tick needs besides the world itself:
// tick rate, tuning and the simulation's random source
type SimContext struct {
	TickSpeed int
	Tuning    Tuning
	Rand      *rand.Rand
}

// NewSimContext returns a context with default tuning and a seeded RNG
func NewSimContext(tickSpeed int, seed int64) *SimContext {
	return &SimContext{
		TickSpeed: tickSpeed,
		Tuning:    DefaultTuning(tickSpeed),
		Rand:      rand.New(rand.NewSource(seed)),
	}
}

// Seconds converts a duration in seconds into ticks
func (s *SimContext) Seconds(sec float64) int64 {
	return int64(sec * float64(s.TickSpeed))
}
