package preview

import (
	"bytes"
	"fmt"
	"time"

	"github.com/igolaizola/lightshow/pkg/playback"
	"github.com/igolaizola/lightshow/pkg/show"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot draws the color blocks of a song over time. Strobe blocks are drawn
// as two stacked bands, the lower one with the second color. Blocks without
// a second color use strobeColor, or playback.DefaultStrobeColor if empty.
func Plot(song *show.SongSequence, format, strobeColor string) ([]byte, error) {
	if err := song.Validate(); err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	if strobeColor == "" {
		strobeColor = playback.DefaultStrobeColor
	}
	defaultC2, err := show.ParseColor(strobeColor)
	if err != nil {
		return nil, fmt.Errorf("preview: strobe color: %w", err)
	}
	if format == "" {
		format = "png"
	}

	p := plot.New()
	p.Y.Min = 0
	p.Y.Max = 1
	p.X.Min = 0
	end := song.DurationSeconds
	if n := len(song.Sequence); n > 0 && song.Sequence[n-1].End > end {
		end = song.Sequence[n-1].End
	}
	p.X.Max = end

	name := song.SongName
	if name == "" {
		name = song.SongID
	}
	d := time.Duration(end * float64(time.Second)).Round(time.Second)
	p.Title.Text = fmt.Sprintf("%s %s (%s)", name, d, song.Mode)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "color"
	p.HideY()

	for _, b := range song.Sequence {
		c, err := show.ParseColor(b.Color)
		if err != nil {
			return nil, fmt.Errorf("preview: %w", err)
		}
		top := 0.0
		if song.Mode == show.Strobe {
			c2 := defaultC2
			if b.StrobeColor2 != "" {
				if c2, err = show.ParseColor(b.StrobeColor2); err != nil {
					return nil, fmt.Errorf("preview: %w", err)
				}
			}
			low, err := band(b.Start, b.End, 0, 0.5)
			if err != nil {
				return nil, err
			}
			low.Color = c2
			low.LineStyle.Width = 0
			p.Add(low)
			top = 0.5
		}
		poly, err := band(b.Start, b.End, top, 1)
		if err != nil {
			return nil, err
		}
		poly.Color = c
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	// Save the plot
	w, err := p.WriterTo(8*vg.Inch, 2*vg.Inch, format)
	if err != nil {
		return nil, fmt.Errorf("preview: couldn't create plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("preview: couldn't write plot: %w", err)
	}
	return buf.Bytes(), nil
}

func band(start, end, low, high float64) (*plotter.Polygon, error) {
	poly, err := plotter.NewPolygon(plotter.XYs{
		{X: start, Y: low},
		{X: end, Y: low},
		{X: end, Y: high},
		{X: start, Y: high},
	})
	if err != nil {
		return nil, fmt.Errorf("preview: couldn't create polygon: %w", err)
	}
	return poly, nil
}
