package hexapod

import (
	"fmt"
	"math"
)

// Body and leg geometry, metres.
const (
	BodyRadius   = 0.10
	CoxaLength   = 0.04
	FemurLength  = 0.08
	TibiaLength  = 0.12
	NumJoints    = NumLegs * 3
	MaxStride    = 0.10
	MaxJointRate = 8.0 // rad/s
)

// Vec3 is a position in metres.
type Vec3 [3]float64

// mountAngle is the direction of a leg's hip from the body centre.
func mountAngle(leg int) float64 {
	return math.Pi/6 + float64(leg)*math.Pi/3
}

func hipPosition(leg int) (float64, float64) {
	a := mountAngle(leg)
	return BodyRadius * math.Cos(a), BodyRadius * math.Sin(a)
}

// ForwardKinematics returns the foot position in the body frame (hip plane
// at z = 0) for coxa, femur and tibia angles.
func ForwardKinematics(leg int, coxa, femur, tibia float64) Vec3 {
	hx, hy := hipPosition(leg)
	phi := mountAngle(leg) + coxa
	reach := CoxaLength + FemurLength*math.Cos(femur) + TibiaLength*math.Cos(femur+tibia)
	z := FemurLength*math.Sin(femur) + TibiaLength*math.Sin(femur+tibia)
	return Vec3{hx + reach*math.Cos(phi), hy + reach*math.Sin(phi), z}
}

// InverseKinematics returns coxa, femur and tibia angles placing the foot
// at p (body frame), knee up. It fails with ErrUnreachable when p is out of
// reach.
func InverseKinematics(leg int, p Vec3) ([3]float64, error) {
	hx, hy := hipPosition(leg)
	vx, vy := p[0]-hx, p[1]-hy
	coxa := wrapAngle(math.Atan2(vy, vx) - mountAngle(leg))

	dh := math.Hypot(vx, vy) - CoxaLength
	d := math.Hypot(dh, p[2])
	if d > FemurLength+TibiaLength || d < math.Abs(FemurLength-TibiaLength) || dh <= 0 {
		return [3]float64{}, fmt.Errorf("leg %d to (%.3f, %.3f, %.3f): %w", leg, p[0], p[1], p[2], ErrUnreachable)
	}

	f2, t2 := FemurLength*FemurLength, TibiaLength*TibiaLength
	femur := math.Atan2(p[2], dh) + math.Acos(clamp((f2+d*d-t2)/(2*FemurLength*d), -1, 1))
	tibia := math.Acos(clamp((f2+t2-d*d)/(2*FemurLength*TibiaLength), -1, 1)) - math.Pi
	return [3]float64{coxa, femur, tibia}, nil
}

func wrapAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
