// Package pointio reads weighted sample points and seed curves from CSV and
// writes fitted curves back out.
package pointio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/pgraph"
)

// ErrNoRecords is returned when an input holds no data rows.
var ErrNoRecords = errors.New("no data rows")

// CurvesHeader is the header row written by WriteCurves and accepted by
// ReadCurves.
var CurvesHeader = []string{"curve", "x", "y"}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return reader
}

// isHeader reports whether the first record is a header: its numeric
// column does not parse as a number.
func isHeader(record []string, col int) bool {
	if len(record) <= col {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
	return err != nil
}

func parseFloat(s, name string, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s at line %d: %v", name, line, err)
	}
	return v, nil
}

// ReadPoints parses rows of x,y[,weight]. A missing weight is 1. A header
// row is skipped when its first column is not a number.
func ReadPoints(r io.Reader) ([]pgraph.Point, error) {
	records, err := newReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read points CSV: %w", err)
	}
	start := 0
	if len(records) > 0 && isHeader(records[0], 0) {
		start = 1
	}
	if len(records) <= start {
		return nil, fmt.Errorf("points CSV: %w", ErrNoRecords)
	}

	points := make([]pgraph.Point, 0, len(records)-start)
	for i, record := range records[start:] {
		line := i + start + 1
		if len(record) != 2 && len(record) != 3 {
			return nil, fmt.Errorf("invalid record at line %d: expected 2 or 3 fields, got %d", line, len(record))
		}
		x, err := parseFloat(record[0], "x", line)
		if err != nil {
			return nil, err
		}
		y, err := parseFloat(record[1], "y", line)
		if err != nil {
			return nil, err
		}
		w := 1.0
		if len(record) == 3 {
			if w, err = parseFloat(record[2], "weight", line); err != nil {
				return nil, err
			}
		}
		points = append(points, pgraph.Point{Pos: r2.Vec{X: x, Y: y}, Weight: w})
	}
	return points, nil
}

// ReadCurves parses rows of curve,x,y into polylines. Rows sharing a curve
// label form one curve in row order; curves are returned in order of first
// appearance.
func ReadCurves(r io.Reader) ([][]r2.Vec, error) {
	records, err := newReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read curves CSV: %w", err)
	}
	start := 0
	if len(records) > 0 && isHeader(records[0], 1) {
		start = 1
	}
	if len(records) <= start {
		return nil, fmt.Errorf("curves CSV: %w", ErrNoRecords)
	}

	index := make(map[string]int)
	var curves [][]r2.Vec
	for i, record := range records[start:] {
		line := i + start + 1
		if len(record) != 3 {
			return nil, fmt.Errorf("invalid record at line %d: expected 3 fields, got %d", line, len(record))
		}
		x, err := parseFloat(record[1], "x", line)
		if err != nil {
			return nil, err
		}
		y, err := parseFloat(record[2], "y", line)
		if err != nil {
			return nil, err
		}
		label := strings.TrimSpace(record[0])
		k, ok := index[label]
		if !ok {
			k = len(curves)
			index[label] = k
			curves = append(curves, nil)
		}
		curves[k] = append(curves[k], r2.Vec{X: x, Y: y})
	}
	return curves, nil
}

// WriteCurves writes curves as curve,x,y rows, numbering curves from 0.
func WriteCurves(w io.Writer, curves [][]r2.Vec) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CurvesHeader); err != nil {
		return fmt.Errorf("failed to write curves header: %w", err)
	}
	for i, c := range curves {
		label := strconv.Itoa(i)
		for _, p := range c {
			row := []string{
				label,
				strconv.FormatFloat(p.X, 'g', -1, 64),
				strconv.FormatFloat(p.Y, 'g', -1, 64),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write curve %d: %w", i, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
