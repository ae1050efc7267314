// Package world provides the site grid agents are placed on.
// The grid only bounds communication neighborhoods; there is no movement.
package world

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when placing outside the grid.
var ErrOutOfBounds = errors.New("coordinate out of bounds")

// Coord is a cell position on the rectangular site grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Chebyshev (Moore) distance between two cells.
func Distance(a, b Coord) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dy > dx {
		return dy
	}
	return dx
}

// Grid is a bounded, non-toroidal multi-occupancy grid.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	cells [][]int // agent IDs per cell, row-major
	pos   map[int]Coord
}

// NewGrid creates an empty grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		cells:  make([][]int, width*height),
		pos:    make(map[int]Coord),
	}
}

// InBounds returns true if the coordinate lies on the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Place puts an agent on a cell. Several agents may share a cell.
func (g *Grid) Place(id int, c Coord) error {
	if !g.InBounds(c) {
		return fmt.Errorf("place agent %d at (%d,%d): %w", id, c.X, c.Y, ErrOutOfBounds)
	}
	if _, ok := g.pos[id]; ok {
		return fmt.Errorf("place agent %d: already placed", id)
	}
	i := c.Y*g.Width + c.X
	g.cells[i] = append(g.cells[i], id)
	g.pos[id] = c
	return nil
}

// Position returns where an agent was placed.
func (g *Grid) Position(id int) (Coord, bool) {
	c, ok := g.pos[id]
	return c, ok
}

// Within returns the IDs of agents at Chebyshev distance <= radius from c,
// excluding the given ID. Results are in row-major cell order, then
// placement order, so neighborhoods are reproducible.
func (g *Grid) Within(c Coord, radius, exclude int) []int {
	var out []int
	for y := max(0, c.Y-radius); y <= min(g.Height-1, c.Y+radius); y++ {
		for x := max(0, c.X-radius); x <= min(g.Width-1, c.X+radius); x++ {
			for _, id := range g.cells[y*g.Width+x] {
				if id != exclude {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// Count returns the number of placed agents.
func (g *Grid) Count() int {
	return len(g.pos)
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, agents=%d)", g.Width, g.Height, g.Count())
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
