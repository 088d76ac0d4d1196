package stochtree

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

var ErrUnbalancedBrackets = errors.New("unbalanced brackets")

// Stroke colours
const (
	Brown = "brown"
	Green = "green"
)

// DefaultMinLength is the segment length at or under which a forward step is skipped
const DefaultMinLength = 2

type Point struct {
	X, Y float64
}

// Segment is a drawn line, Index being its render order
type Segment struct {
	Start, End Point
	Width      float64
	Color      string
	Index      int
}

// Sink accepts the segments of a rendering
type Sink interface {
	DrawSegment(seg Segment) error
}

// TurtleState is the drawing state of the turtle
type TurtleState struct {
	Position Point
	Angle    float64
	Length   float64
	Width    float64
}

func (ts TurtleState) forward() Point {
	return Point{
		X: ts.Position.X + ts.Length*math.Cos(ts.Angle),
		Y: ts.Position.Y + ts.Length*math.Sin(ts.Angle),
	}
}

// Turtle interprets derivation strings
type Turtle struct {
	// MinLength at or under which F does not draw, DefaultMinLength when zero
	MinLength float64

	// StartWidth is the reference of the taper thresholds, the initial width when zero
	StartWidth float64

	rng   *rand.Rand
	sink  Sink
	stack []TurtleState
	count int
}

func NewTurtle(sink Sink, rng *rand.Rand) *Turtle {
	return &Turtle{
		MinLength: DefaultMinLength,
		rng:       rng,
		sink:      sink,
	}
}

// Depth returns the number of saved states
func (t *Turtle) Depth() int {
	return len(t.stack)
}

// Segments returns how many segments the last Render emitted
func (t *Turtle) Segments() int {
	return t.count
}

func (t *Turtle) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*t.rng.Float64()
}

func (t *Turtle) emit(from, to Point, width float64, color string) error {
	seg := Segment{
		Start: from,
		End:   to,
		Width: width,
		Color: color,
		Index: t.count,
	}
	if err := t.sink.DrawSegment(seg); err != nil {
		return errors.Wrapf(err, "drawing segment %d", seg.Index)
	}
	t.count++
	return nil
}

// Render walks statement from initial and returns the final state
func (t *Turtle) Render(statement String, initial TurtleState) (TurtleState, error) {
	t.stack = t.stack[:0]
	t.count = 0
	minLength := t.MinLength
	if minLength == 0 {
		minLength = DefaultMinLength
	}
	startWidth := t.StartWidth
	if startWidth == 0 {
		startWidth = initial.Width
	}

	state := initial
	for i, sym := range statement {
		switch sym {
		case Forward:
			if state.Length <= minLength {
				continue
			}
			next := state.forward()
			if err := t.emit(state.Position, next, state.Width, Brown); err != nil {
				return state, err
			}
			state.Position = next

			// Both thresholds look at the width before this step
			width := state.Width
			if width > 0.2*startWidth {
				state.Width = width * t.uniform(0.8, 1)
			}
			if width > 0.5*startWidth {
				state.Length *= t.uniform(0.9, 1)
			}

		case Leaf:
			next := state.forward()
			width := 2 * state.Width / 3
			if err := t.emit(state.Position, next, width, Green); err != nil {
				return state, err
			}
			state.Position = next
			state.Width = width

		case BranchOpen:
			t.stack = append(t.stack, state)

		case BranchClose:
			if len(t.stack) == 0 {
				return state, errors.Wrapf(ErrUnbalancedBrackets, "unmatched %q at position %d", rune(sym), i)
			}
			state = t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]

		case TurnRight:
			state.Angle += t.uniform(math.Pi/20, math.Pi/7)

		case TurnLeft:
			state.Angle -= t.uniform(math.Pi/20, math.Pi/7)

		default:
			// X and rewrite-only symbols do not draw
		}
	}

	if len(t.stack) != 0 {
		err := errors.Wrapf(ErrUnbalancedBrackets, "%d unterminated %q at end of string", len(t.stack), rune(BranchOpen))
		t.stack = t.stack[:0]
		return state, err
	}
	return state, nil
}

// Render draws statement into sink with a fresh turtle and returns the number of segments drawn
func Render(statement String, initial TurtleState, sink Sink, rng *rand.Rand) (int, error) {
	t := NewTurtle(sink, rng)
	_, err := t.Render(statement, initial)
	return t.Segments(), err
}
