package render

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/aabizri/stochtree"
	"github.com/pkg/errors"
)

// DefaultStagger is the reveal delay between two consecutive segments
const DefaultStagger = 10 * time.Millisecond

// SVG writes segments as the lines of an SVG document, revealed one after
// the other in render order
type SVG struct {
	Width, Height float64
	Stagger       time.Duration

	w       *bufio.Writer
	started bool
	closed  bool
}

func NewSVG(w io.Writer, width, height float64) *SVG {
	return &SVG{
		Width:   width,
		Height:  height,
		Stagger: DefaultStagger,
		w:       bufio.NewWriter(w),
	}
}

const svgHeader = `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">
<style>
line.tree { stroke-opacity: 0; stroke-linecap: round; animation: reveal 0s forwards; }
@keyframes reveal { to { stroke-opacity: 1; } }
</style>
`

func (s *SVG) start() error {
	if s.started {
		return nil
	}
	s.started = true
	_, err := fmt.Fprintf(s.w, svgHeader, s.Width, s.Height, s.Width, s.Height)
	return err
}

func (s *SVG) DrawSegment(seg stochtree.Segment) error {
	if s.closed {
		return errors.New("svg already closed")
	}
	if err := s.start(); err != nil {
		return err
	}

	delay := time.Duration(seg.Index) * s.Stagger
	_, err := fmt.Fprintf(s.w,
		`<line class="tree" x1="%.3f" y1="%.3f" x2="%.3f" y2="%.3f" style="stroke: %s; stroke-width: %.3f; animation-delay: %dms"/>`+"\n",
		seg.Start.X, seg.Start.Y, seg.End.X, seg.End.Y,
		seg.Color, seg.Width, delay.Milliseconds(),
	)
	return err
}

// Close terminates the document and flushes it
func (s *SVG) Close() error {
	if s.closed {
		return nil
	}
	if err := s.start(); err != nil {
		return err
	}
	s.closed = true
	if _, err := io.WriteString(s.w, "</svg>\n"); err != nil {
		return err
	}
	return s.w.Flush()
}
