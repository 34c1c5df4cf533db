// Package hexapod is a kinematic hexapod walker: a gait controller built
// from a 6x5 leg parameter table with an optional neural correction, and a
// simulator that moves the body so that planted feet do not slip.
//
// Legs are numbered counter-clockwise from the front right. Each leg has a
// coxa (yaw), femur and tibia joint; joint angle slices are indexed
// leg*3 + joint.
package hexapod
