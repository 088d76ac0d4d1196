// Package render provides sinks for the segments drawn by a stochtree.Turtle
package render

import "github.com/aabizri/stochtree"

var (
	_ stochtree.Sink = &Collector{}
	_ stochtree.Sink = &SVG{}
)

// Collector keeps every segment in memory
type Collector struct {
	Segments []stochtree.Segment
}

func (c *Collector) DrawSegment(seg stochtree.Segment) error {
	c.Segments = append(c.Segments, seg)
	return nil
}

// Count returns the number of collected segments of the given colour
func (c *Collector) Count(color string) int {
	n := 0
	for _, seg := range c.Segments {
		if seg.Color == color {
			n++
		}
	}
	return n
}
