// Package chart renders growth curves of tracked spheroids
package chart

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/LdDl/spheroid-mot/mot"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Metric selects a column of the time series
type Metric struct {
	Name  string
	Label string
	Value func(row mot.SeriesRow) float64
}

// Metrics plotted by WriteGrowthCharts
var Metrics = []Metric{
	{Name: "diameter", Label: "Diameter (fraction of image side)", Value: func(row mot.SeriesRow) float64 { return row.Diameter }},
	{Name: "area", Label: "Area (fraction of image)", Value: func(row mot.SeriesRow) float64 { return row.Area }},
	{Name: "volume", Label: "Volume (normalized)", Value: func(row mot.SeriesRow) float64 { return row.Volume }},
}

// GrowthPlot draws one line per track of the metric against time in minutes.
// Smoothed rows, when given for a track, are drawn dashed on top of raw values.
func GrowthPlot(ts *mot.TimeSeries, smoothed map[mot.TrackID][]mot.SeriesRow, metric Metric) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Spheroid %s", metric.Name)
	p.X.Label.Text = "Time (min)"
	p.Y.Label.Text = metric.Label

	for i, id := range ts.TrackIDs {
		raw := seriesXYs(ts.Track(id), metric)
		if len(raw) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "track %s", id)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(fmt.Sprintf("spheroid %s", id), line, points)

		rows, ok := smoothed[id]
		if !ok || len(rows) == 0 {
			continue
		}
		smoothLine, err := plotter.NewLine(seriesXYs(rows, metric))
		if err != nil {
			return nil, errors.Wrapf(err, "smoothed track %s", id)
		}
		smoothLine.Color = plotutil.Color(i)
		smoothLine.Width = vg.Points(1.5)
		smoothLine.Dashes = plotutil.Dashes(1)
		p.Add(smoothLine)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

func seriesXYs(rows []mot.SeriesRow, metric Metric) plotter.XYs {
	pts := make(plotter.XYs, 0, len(rows))
	for _, row := range rows {
		pts = append(pts, plotter.XY{X: row.Time.Minutes(), Y: metric.Value(row)})
	}
	return pts
}

// WriteGrowthCharts saves growth_<metric>.png for every metric into dir and returns written paths
func WriteGrowthCharts(dir string, ts *mot.TimeSeries, smoothed map[mot.TrackID][]mot.SeriesRow) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "can't create %s", dir)
	}
	paths := make([]string, 0, len(Metrics))
	for _, metric := range Metrics {
		p, err := GrowthPlot(ts, smoothed, metric)
		if err != nil {
			return paths, errors.Wrapf(err, "%s chart", metric.Name)
		}
		path := filepath.Join(dir, fmt.Sprintf("growth_%s.png", metric.Name))
		if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
			return paths, errors.Wrapf(err, "can't save %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
