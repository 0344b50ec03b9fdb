package stdlib

import (
	"math"
	"math/rand"

	"github.com/thomasrohde/botlang/pkg/evaluator"
)

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }
func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }

func num(v evaluator.Value) float64 { return float64(v.(evaluator.Number)) }

// unary lifts a float function into a one-number library function.
func unary(name, doc string, f func(float64) float64) Fn {
	return Fn{
		Name:     name,
		Arity:    1,
		ArgTypes: []string{evaluator.TypeNumber},
		Doc:      doc,
		Execute: func(args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.Number(f(num(args[0]))), nil
		},
	}
}

func binary(name, doc string, f func(a, b float64) float64) Fn {
	return Fn{
		Name:     name,
		Arity:    2,
		ArgTypes: []string{evaluator.TypeNumber, evaluator.TypeNumber},
		Doc:      doc,
		Execute: func(args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.Number(f(num(args[0]), num(args[1]))), nil
		},
	}
}

// MathBundle returns the Math library. Angles are in degrees. rng backs
// random and randomInt; a nil rng uses the global source.
func MathBundle(rng *rand.Rand) *Bundle {
	float := rand.Float64
	int63n := rand.Int63n
	if rng != nil {
		float = rng.Float64
		int63n = rng.Int63n
	}

	return &Bundle{
		Name: "Math",
		Doc:  "Trigonometry in degrees, rounding, powers and random numbers.",
		Functions: []Fn{
			// Math.sin(deg) → number
			unary("sin", "Sine of an angle in degrees.", func(x float64) float64 {
				return math.Sin(degToRad(x))
			}),
			unary("cos", "Cosine of an angle in degrees.", func(x float64) float64 {
				return math.Cos(degToRad(x))
			}),
			unary("tan", "Tangent of an angle in degrees.", func(x float64) float64 {
				return math.Tan(degToRad(x))
			}),
			// Math.asin(x) → degrees
			unary("asin", "Arcsine in degrees.", func(x float64) float64 {
				return radToDeg(math.Asin(x))
			}),
			unary("acos", "Arccosine in degrees.", func(x float64) float64 {
				return radToDeg(math.Acos(x))
			}),
			unary("atan", "Arctangent in degrees.", func(x float64) float64 {
				return radToDeg(math.Atan(x))
			}),
			binary("atan2", "Angle in degrees of the vector (x, y), given as atan2(y, x).", func(y, x float64) float64 {
				return radToDeg(math.Atan2(y, x))
			}),

			unary("sqrt", "Square root.", math.Sqrt),
			binary("pow", "Base raised to an exponent.", math.Pow),
			unary("abs", "Absolute value.", math.Abs),
			unary("floor", "Largest integer not above the argument.", math.Floor),
			unary("ceil", "Smallest integer not below the argument.", math.Ceil),
			// Math.round(x) rounds halves up, so round(-2.5) is -2.
			unary("round", "Nearest integer, halves rounding up.", func(x float64) float64 {
				return math.Floor(x + 0.5)
			}),
			binary("min", "Smaller of two numbers.", math.Min),
			binary("max", "Larger of two numbers.", math.Max),

			// Math.random() → number in [0, 1)
			{
				Name: "random",
				Doc:  "Random number in [0, 1).",
				Execute: func(args []evaluator.Value) (evaluator.Value, error) {
					return evaluator.Number(float()), nil
				},
			},
			// Math.randomInt(lo, hi) → integer in [lo, hi]
			{
				Name:     "randomInt",
				Arity:    2,
				ArgTypes: []string{evaluator.TypeNumber, evaluator.TypeNumber},
				Doc:      "Random integer between lo and hi inclusive.",
				Execute: func(args []evaluator.Value) (evaluator.Value, error) {
					lo, hi := args[0].(evaluator.Number), args[1].(evaluator.Number)
					if !evaluator.IsInteger(lo) || !evaluator.IsInteger(hi) {
						return nil, evaluator.RangeErrorf("randomInt bounds must be integers (recieved %s, %s).",
							evaluator.FormatNumber(float64(lo)), evaluator.FormatNumber(float64(hi)))
					}
					if lo > hi {
						return nil, evaluator.RangeErrorf("randomInt lower bound %s is greater than upper bound %s.",
							evaluator.FormatNumber(float64(lo)), evaluator.FormatNumber(float64(hi)))
					}
					span := float64(hi-lo) + 1
					if span > 1<<53 {
						return nil, evaluator.RangeErrorf("randomInt range is too large.")
					}
					return evaluator.Number(float64(lo) + float64(int63n(int64(span)))), nil
				},
			},
		},
		Variables: map[string]evaluator.Value{
			"PI":    evaluator.Number(math.Pi),
			"E":     evaluator.Number(math.E),
			"TAU":   evaluator.Number(2 * math.Pi),
			"SQRT2": evaluator.Number(math.Sqrt2),
			"LN2":   evaluator.Number(math.Ln2),
			"LN10":  evaluator.Number(math.Ln10),
		},
	}
}
