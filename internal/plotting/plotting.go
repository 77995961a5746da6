// Package plotting renders lineage fitness trajectories as images.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"lineagekit/internal/lineagestats"
	"lineagekit/internal/phylogeny"
)

var ErrEmptyLineage = errors.New("lineage has no steps")

// Width and Height are the saved image dimensions.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Trajectory orders a lineage's fitness from the oldest ancestor to the
// start organism, indexed by ancestral step.
func Trajectory(l phylogeny.Lineage) plotter.XYs {
	fits := l.Fitnesses()
	pts := make(plotter.XYs, len(fits))
	for i := range fits {
		pts[i].X = float64(i)
		pts[i].Y = fits[len(fits)-1-i]
	}
	return pts
}

// RollingTrajectory is the trailing mean of Trajectory over window steps.
// Steps before the first full window are omitted.
func RollingTrajectory(l phylogeny.Lineage, window int) plotter.XYs {
	pts := Trajectory(l)
	ys := make([]float64, len(pts))
	for i, p := range pts {
		ys[i] = p.Y
	}
	means := lineagestats.RollingMean(ys, window)
	out := make(plotter.XYs, 0, len(pts))
	for i, m := range means {
		if math.IsNaN(m) {
			continue
		}
		out = append(out, plotter.XY{X: pts[i].X, Y: m})
	}
	return out
}

// LineagePlot draws fitness along the lineage and, when the lineage is long
// enough, its rolling mean over window steps. The image format follows the
// extension of outPath.
func LineagePlot(l phylogeny.Lineage, window int, title, outPath string) error {
	if l.Len() == 0 {
		return ErrEmptyLineage
	}
	if filepath.Ext(outPath) == "" {
		return fmt.Errorf("plot %s: output path needs an image extension", outPath)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Ancestral step"
	p.Y.Label.Text = "Fitness"

	fitLine, err := plotter.NewLine(Trajectory(l))
	if err != nil {
		return err
	}
	p.Add(fitLine)
	p.Legend.Add("fitness", fitLine)

	if rolling := RollingTrajectory(l, window); len(rolling) > 0 {
		meanLine, err := plotter.NewLine(rolling)
		if err != nil {
			return err
		}
		meanLine.Color = color.RGBA{R: 200, A: 255}
		meanLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(meanLine)
		p.Legend.Add(fmt.Sprintf("rolling mean (%d)", window), meanLine)
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	if err := p.Save(Width, Height, outPath); err != nil {
		return fmt.Errorf("save plot %s: %w", outPath, err)
	}
	return nil
}
