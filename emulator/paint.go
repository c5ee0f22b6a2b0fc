package emulator

import (
	"context"
	"strings"

	"github.com/ezrec/intcode/cpu"
)

// Colours of a hull panel, as exchanged with a painting robot.
const (
	PANEL_BLACK = int64(0)
	PANEL_WHITE = int64(1)
)

// Turns requested by a painting robot.
const (
	TURN_LEFT  = int64(0)
	TURN_RIGHT = int64(1)
)

// Point is a panel location; Y increases upwards.
type Point struct {
	X, Y int
}

// Hull records the panels painted by a robot.
type Hull struct {
	White   map[Point]bool // Panels currently white.
	Painted map[Point]bool // Panels painted at least once.
	Moves   int            // Moves made by the robot.
}

// Paint drives a painting robot program over a hull. The robot starts at
// the origin facing up, on a panel of the start colour. Each step the robot
// is given the colour under it, and outputs the colour to paint followed
// by the direction to turn before moving one panel forward.
func Paint(ctx context.Context, image []int64, start int64) (hull *Hull, err error) {
	robot := cpu.NewCpu(image)
	hull = &Hull{
		White:   map[Point]bool{},
		Painted: map[Point]bool{},
	}

	pos := Point{}
	dir := Point{X: 0, Y: 1}

	if start == PANEL_WHITE {
		hull.White[pos] = true
	}

	for {
		colour := PANEL_BLACK
		if hull.White[pos] {
			colour = PANEL_WHITE
		}

		var value int64
		var halted bool
		value, halted, err = robot.ExecuteContext(ctx, colour)
		if err != nil || halted {
			return
		}

		if value == PANEL_WHITE {
			hull.White[pos] = true
		} else {
			delete(hull.White, pos)
		}
		hull.Painted[pos] = true

		value, halted, err = robot.ExecuteContext(ctx, colour)
		if err != nil || halted {
			return
		}

		if value == TURN_LEFT {
			dir = Point{X: -dir.Y, Y: dir.X}
		} else {
			dir = Point{X: dir.Y, Y: -dir.X}
		}
		pos = Point{X: pos.X + dir.X, Y: pos.Y + dir.Y}
		hull.Moves++
	}
}

// String renders the white panels, top row first, as '#' on '.'.
func (hull *Hull) String() string {
	if len(hull.White) == 0 {
		return ""
	}

	first := true
	var lo, hi Point
	for pt := range hull.White {
		if first {
			lo, hi = pt, pt
			first = false
			continue
		}
		lo = Point{X: min(lo.X, pt.X), Y: min(lo.Y, pt.Y)}
		hi = Point{X: max(hi.X, pt.X), Y: max(hi.Y, pt.Y)}
	}

	var text strings.Builder
	for y := hi.Y; y >= lo.Y; y-- {
		for x := lo.X; x <= hi.X; x++ {
			if hull.White[Point{X: x, Y: y}] {
				text.WriteByte('#')
			} else {
				text.WriteByte('.')
			}
		}
		text.WriteByte('\n')
	}

	return text.String()
}
