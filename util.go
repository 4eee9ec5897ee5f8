package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Vec2 is the world-space vector used by every physics routine
type Vec2 = mgl64.Vec2

// fixed-point scale used by map coordinates (1/1024 units)
const fxScale = 1024

// GenerateUUID returns a random v4 UUID string
func GenerateUUID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(a, b Vec2) float64 {
	return b.Sub(a).Len()
}

// Mix linearly interpolates between a and b
func Mix(a, b Vec2, t float64) Vec2 {
	return a.Add(b.Sub(a).Mul(t))
}

// Normalize returns v scaled to unit length, or the zero vector
func Normalize(v Vec2) Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return v.Mul(1 / l)
}

// roundToInt rounds half away from zero like the network quantizer expects
func roundToInt(f float64) int {
	if f > 0 {
		return int(f + 0.5)
	}
	return int(f - 0.5)
}

func f2fx(v float64) int32 { return int32(v * fxScale) }
func fx2f(v int32) float64 { return float64(v) / fxScale }

// saturatedAdd moves current by modifier without crossing max/min
func saturatedAdd(min, max, current, modifier float64) float64 {
	if modifier < 0 {
		if current < min {
			return current
		}
		current += modifier
		if current < min {
			current = min
		}
		return current
	}
	if current > max {
		return current
	}
	current += modifier
	if current > max {
		current = max
	}
	return current
}

// velocityRamp returns the horizontal damping factor for fast movement
func velocityRamp(value, start, rng, curvature float64) float64 {
	if value < start {
		return 1.0
	}
	return 1.0 / math.Pow(curvature, (value-start)/rng)
}

func sign(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return 0
}
