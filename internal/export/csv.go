// Package export writes time-series tables as CSV files
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/LdDl/spheroid-mot/mot"
	"github.com/pkg/errors"
)

// CombinedFileName is the table of all tracks
const CombinedFileName = "general_t_series_data.csv"

var (
	trackHeader    = []string{"frame", "t", "confidence", "diameter", "area", "volume", "interpolated"}
	combinedHeader = append([]string{"track_id"}, trackHeader...)
)

// TrackFileName returns per-track table name, e.g. spheroid_03.csv
func TrackFileName(id mot.TrackID) string {
	return fmt.Sprintf("spheroid_%02d.csv", int(id))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func rowFields(row mot.SeriesRow) []string {
	return []string{
		strconv.Itoa(row.FrameNum),
		formatFloat(row.Time.Seconds()),
		formatFloat(row.Confidence),
		formatFloat(row.Diameter),
		formatFloat(row.Area),
		formatFloat(row.Volume),
		strconv.FormatBool(row.Interpolated),
	}
}

// WriteTrack writes rows of a single track. Time is in seconds.
func WriteTrack(w io.Writer, rows []mot.SeriesRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(trackHeader); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, row := range rows {
		if err := writer.Write(rowFields(row)); err != nil {
			return errors.Wrapf(err, "write frame %d", row.FrameNum)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "flush")
}

// WriteCombined writes rows of all tracks labeled by track id
func WriteCombined(w io.Writer, rows []mot.CombinedRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(combinedHeader); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, row := range rows {
		fields := append([]string{strconv.Itoa(int(row.TrackID))}, rowFields(row.SeriesRow)...)
		if err := writer.Write(fields); err != nil {
			return errors.Wrapf(err, "write track %d frame %d", row.TrackID, row.FrameNum)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "flush")
}

// WriteDir writes one file per track and the combined table into dir (created if missing).
// Returns written paths, combined table last.
func WriteDir(dir string, ts *mot.TimeSeries) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "can't create %s", dir)
	}
	paths := make([]string, 0, ts.Len()+1)
	for _, id := range ts.TrackIDs {
		path := filepath.Join(dir, TrackFileName(id))
		if err := writeFile(path, func(w io.Writer) error { return WriteTrack(w, ts.Track(id)) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	path := filepath.Join(dir, CombinedFileName)
	if err := writeFile(path, func(w io.Writer) error { return WriteCombined(w, ts.Combined) }); err != nil {
		return paths, err
	}
	return append(paths, path), nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "can't create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "can't write %s", path)
	}
	return errors.Wrapf(f.Close(), "can't close %s", path)
}
