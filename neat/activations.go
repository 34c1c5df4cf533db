package neat

import (
	"fmt"
	"math"
)

// ActivationType is a node activation function. Response scaling is
// applied by the network before the call.
type ActivationType func(x float64) float64

// ActivationFunctions maps config names to activation functions. The
// neat-python short names (sin, gauss, abs) are registered alongside the
// long ones so CPPN configs written for either spelling load.
var ActivationFunctions = map[string]ActivationType{
	"sigmoid":  Sigmoid,
	"tanh":     Tanh,
	"relu":     ReLU,
	"identity": Identity,
	"clamped":  Clamped,
	"gaussian": Gaussian,
	"gauss":    Gaussian,
	"absolute": Absolute,
	"abs":      Absolute,
	"sine":     Sine,
	"sin":      Sine,
	"cosine":   Cosine,
	"inv":      Inv,
	"log":      Log,
	"exp":      Exp,
	"hat":      Hat,
	"square":   Square,
	"cube":     Cube,
}

// GetActivation looks up an activation function by name.
func GetActivation(name string) (ActivationType, error) {
	if fn, ok := ActivationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// Sigmoid is the steepened logistic curve used by neat-python.
func Sigmoid(x float64) float64 {
	x = clamp(5.0*x, -60.0, 60.0)
	return 1.0 / (1.0 + math.Exp(-x))
}

func Tanh(x float64) float64 {
	return math.Tanh(clamp(2.5*x, -60.0, 60.0))
}

func ReLU(x float64) float64 {
	return math.Max(0, x)
}

func Identity(x float64) float64 {
	return x
}

// Clamped limits x to [-1, 1].
func Clamped(x float64) float64 {
	return clamp(x, -1.0, 1.0)
}

func Gaussian(x float64) float64 {
	x = clamp(x, -3.4, 3.4)
	return math.Exp(-5.0 * x * x)
}

func Absolute(x float64) float64 {
	return math.Abs(x)
}

func Sine(x float64) float64 {
	return math.Sin(clamp(5.0*x, -60.0, 60.0))
}

func Cosine(x float64) float64 {
	return math.Cos(clamp(5.0*x, -60.0, 60.0))
}

// Inv returns 1/x, with 0 for x == 0.
func Inv(x float64) float64 {
	if x == 0.0 {
		return 0.0
	}
	return 1.0 / x
}

func Log(x float64) float64 {
	return math.Log(math.Max(1e-7, x))
}

func Exp(x float64) float64 {
	return math.Exp(clamp(x, -60.0, 60.0))
}

// Hat is a triangular pulse centred at 0.
func Hat(x float64) float64 {
	return math.Max(0.0, 1.0-math.Abs(x))
}

func Square(x float64) float64 {
	return x * x
}

func Cube(x float64) float64 {
	return x * x * x
}
