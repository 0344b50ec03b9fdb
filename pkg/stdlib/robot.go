package stdlib

import (
	"math"
	"strings"

	"github.com/thomasrohde/botlang/pkg/evaluator"
	"github.com/thomasrohde/botlang/pkg/robot"
)

// colorNames index robot.Palette; COLOR_<name> is bound to each position.
var colorNames = []string{
	"BLACK", "GRAY", "WHITE", "RED", "ORANGE", "YELLOW",
	"GREEN", "CYAN", "SKY", "BLUE", "PURPLE", "PINK",
}

// validateArgs checks args against the expected kinds, listing the received
// values on the first mismatch.
func validateArgs(fnName string, expected []string, args []evaluator.Value) error {
	for i, arg := range args {
		if i < len(expected) && evaluator.TypeName(arg) == expected[i] {
			continue
		}
		values := make([]string, len(args))
		for j, v := range args {
			values[j] = evaluator.ValueToString(v)
		}
		return evaluator.TypeErrorf("Invalid argument type(s) to %s: Expected (%s), but recieved (%s).",
			fnName, strings.Join(expected, ", "), strings.Join(values, ", "))
	}
	return nil
}

// requireFinite rejects NaN and infinite coordinates, distances and angles.
func requireFinite(fnName string, args []evaluator.Value) error {
	for _, arg := range args {
		if f := num(arg); math.IsNaN(f) || math.IsInf(f, 0) {
			return evaluator.RangeErrorf("%s expects a finite number (recieved %s).", fnName, evaluator.ValueToString(arg))
		}
	}
	return nil
}

// fault turns a turtle protocol error into a runtime fault.
func fault(err error) error {
	if err == nil {
		return nil
	}
	return evaluator.RuntimeErrorf("%s", err)
}

// action wraps a no-argument turtle command.
func action(name, doc string, f func()) Fn {
	return Fn{Name: name, Doc: doc, Execute: func([]evaluator.Value) (evaluator.Value, error) {
		f()
		return evaluator.Nil{}, nil
	}}
}

// numeric wraps a turtle command taking one number.
func numeric(name, doc string, f func(float64)) Fn {
	return Fn{Name: name, Arity: 1, Doc: doc, Execute: func(args []evaluator.Value) (evaluator.Value, error) {
		if err := validateArgs(name, []string{evaluator.TypeNumber}, args); err != nil {
			return nil, err
		}
		if err := requireFinite(name, args); err != nil {
			return nil, err
		}
		f(num(args[0]))
		return evaluator.Nil{}, nil
	}}
}

func getter(name, doc string, f func() evaluator.Value) Fn {
	return Fn{Name: name, Doc: doc, Execute: func([]evaluator.Value) (evaluator.Value, error) {
		return f(), nil
	}}
}

// RobotBundle returns the Robot library driving t.
func RobotBundle(t *robot.Turtle) *Bundle {
	width, height := t.Canvas()
	vars := map[string]evaluator.Value{
		"CANVAS_WIDTH":  evaluator.Number(width),
		"CANVAS_HEIGHT": evaluator.Number(height),
	}
	for i, name := range colorNames {
		vars["COLOR_"+name] = evaluator.Number(i)
	}

	return &Bundle{
		Name: "Robot",
		Doc:  "Motion, pen, color, polygon and visibility control for the drawing robot.",
		Functions: []Fn{
			// Motion
			getter("getMoveSpeed", "Glide speed in pixels per second.", func() evaluator.Value {
				return evaluator.Number(t.MoveSpeed())
			}),
			numeric("setMoveSpeed", "Sets the glide speed; 0 or less moves instantly.", t.SetMoveSpeed),
			action("resetAll", "Clears the canvas and resets position, heading, pen and speed.", t.ResetAll),
			action("goHome", "Returns to the canvas center facing up.", t.ResetPosition),
			action("resetPen", "Restores the default pen and closes any open polygon.", t.ResetPen),
			action("clearCanvas", "Erases every drawn shape.", t.ClearCanvas),
			getter("getX", "Horizontal position in pixels.", func() evaluator.Value {
				return evaluator.Number(t.Pos().X)
			}),
			getter("getY", "Vertical position in pixels, growing downward.", func() evaluator.Value {
				return evaluator.Number(t.Pos().Y)
			}),
			{
				Name:  "setPos",
				Arity: 2,
				Doc:   "Moves to (x, y) without drawing.",
				Execute: func(args []evaluator.Value) (evaluator.Value, error) {
					if err := validateArgs("setPos", []string{evaluator.TypeNumber, evaluator.TypeNumber}, args); err != nil {
						return nil, err
					}
					if err := requireFinite("setPos", args); err != nil {
						return nil, err
					}
					t.SetPos(num(args[0]), num(args[1]))
					return evaluator.Nil{}, nil
				},
			},
			numeric("moveFwd", "Moves forward, drawing when the pen is down.", t.MoveFwd),
			getter("getAngle", "Heading in degrees, 0 facing up and growing clockwise.", func() evaluator.Value {
				return evaluator.Number(t.Angle())
			}),
			numeric("setAngle", "Sets the heading in degrees.", t.SetAngle),
			numeric("rotate", "Turns clockwise by the given degrees.", t.Rotate),

			// Visibility
			action("showRobot", "Shows the robot.", t.Show),
			action("hideRobot", "Hides the robot.", t.Hide),
			action("show", "Shows the robot.", t.Show),
			action("hide", "Hides the robot.", t.Hide),
			getter("isHidden", "Whether the robot is hidden.", func() evaluator.Value {
				return evaluator.Bool(t.IsHidden())
			}),

			// Pen
			action("penUp", "Stops drawing.", t.PenUp),
			action("penDown", "Starts drawing.", t.PenDown),
			{
				Name:  "setColor",
				Arity: 1,
				Doc:   "Sets the draw color from a palette index or COLOR_ constant.",
				Execute: func(args []evaluator.Value) (evaluator.Value, error) {
					switch c := args[0].(type) {
					case evaluator.String:
						return nil, evaluator.TypeErrorf("setColor sets the draw color using a number or color constant. " +
							"To set it using a CSS string, use setColorCSS instead.")
					case evaluator.Number:
						if !evaluator.IsInteger(c) {
							return nil, evaluator.TypeErrorf("Colors must be integer numbers.")
						}
						t.SetColorIndex(int(c))
						return evaluator.Nil{}, nil
					}
					return nil, validateArgs("setColor", []string{evaluator.TypeNumber}, args)
				},
			},
			{
				Name:  "setColorCSS",
				Arity: 1,
				Doc:   "Sets the draw color from a CSS color string.",
				Execute: func(args []evaluator.Value) (evaluator.Value, error) {
					switch c := args[0].(type) {
					case evaluator.Number:
						return nil, evaluator.TypeErrorf("setColorCSS sets the draw color using a CSS string. " +
							"To set it using a number or color constant, use setColor instead.")
					case evaluator.String:
						t.SetColorCSS(string(c))
						return evaluator.Nil{}, nil
					}
					return nil, validateArgs("setColorCSS", []string{evaluator.TypeString}, args)
				},
			},
			numeric("setLineThickness", "Sets the line width in pixels.", t.SetLineThickness),

			// Polygons
			{
				Name: "beginPoly",
				Doc:  "Starts a filled polygon at the current position.",
				Execute: func([]evaluator.Value) (evaluator.Value, error) {
					return evaluator.Nil{}, fault(t.BeginPoly())
				},
			},
			{
				Name: "endPoly",
				Doc:  "Closes and fills the open polygon.",
				Execute: func([]evaluator.Value) (evaluator.Value, error) {
					return evaluator.Nil{}, fault(t.EndPoly())
				},
			},
			{
				Name: "dropVertex",
				Doc:  "Adds the current position as a polygon vertex.",
				Execute: func([]evaluator.Value) (evaluator.Value, error) {
					return evaluator.Nil{}, fault(t.DropVertex())
				},
			},
		},
		Variables: vars,
	}
}

