package influx

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/athenakad/crud-service-update/pkg/records"
)

// parseAnnotatedCSV extracts points from an InfluxDB annotated CSV query
// response. Annotation lines start with '#'. A response may carry
// several tables, each with its own header row; headers are recognized
// by the presence of the "_time" column and reset the column mapping.
func parseAnnotatedCSV(r io.Reader) ([]records.Point, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	points := []records.Point{}
	timeIdx, valueIdx, idIdx := -1, -1, -1

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		if i := indexOf(row, "_time"); i >= 0 {
			timeIdx = i
			valueIdx = indexOf(row, "_value")
			idIdx = indexOf(row, "id")
			continue
		}
		if timeIdx < 0 || valueIdx < 0 || idIdx < 0 {
			continue
		}
		if len(row) <= timeIdx || len(row) <= valueIdx || len(row) <= idIdx {
			continue
		}
		if row[idIdx] == "" {
			// Point written outside this API, without an id tag.
			continue
		}

		ts, err := time.Parse(time.RFC3339Nano, row[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("parse _time %q: %w", row[timeIdx], err)
		}
		value, err := strconv.ParseFloat(row[valueIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("parse _value %q: %w", row[valueIdx], err)
		}

		points = append(points, records.Point{
			Time:  ts,
			Key:   row[idIdx],
			Value: value,
		})
	}

	return points, nil
}

func indexOf(row []string, name string) int {
	for i, field := range row {
		if field == name {
			return i
		}
	}
	return -1
}
