package ddamodel

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OutputRow is one parsed line of a DDA binary's ASCII output file: a
// window [start, end) sample range, followed by one stride-wide group
// of floats per entity (channel, pair, ...).
type OutputRow struct {
	WindowStart int64
	WindowEnd   int64
	Entities    [][]float64 // len(Entities) == numEntities, len(Entities[i]) == stride
}

// ParseOutput reads one variant's output file per spec §4.3/§6: rows of
// whitespace-separated f64, '#' comments and blank lines skipped. The
// first two values are integer window bounds; the remaining
// data_columns values split evenly into numEntities groups of stride
// columns. An empty file (after filtering comments/blanks) is an error.
func ParseOutput(r io.Reader, stride int) ([]OutputRow, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("ddamodel: stride must be positive, got %d", stride)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var rows []OutputRow
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("ddamodel: malformed output line (need at least window start/end): %q", line)
		}

		windowStart, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ddamodel: invalid window start %q: %w", fields[0], err)
		}
		windowEnd, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ddamodel: invalid window end %q: %w", fields[1], err)
		}

		dataFields := fields[2:]
		if len(dataFields)%stride != 0 {
			return nil, fmt.Errorf("ddamodel: data column count %d is not a multiple of stride %d", len(dataFields), stride)
		}
		numEntities := len(dataFields) / stride

		entities := make([][]float64, numEntities)
		for e := 0; e < numEntities; e++ {
			group := make([]float64, stride)
			for s := 0; s < stride; s++ {
				v, err := strconv.ParseFloat(dataFields[e*stride+s], 64)
				if err != nil {
					return nil, fmt.Errorf("ddamodel: invalid data value %q: %w", dataFields[e*stride+s], err)
				}
				group[s] = v
			}
			entities[e] = group
		}

		rows = append(rows, OutputRow{WindowStart: windowStart, WindowEnd: windowEnd, Entities: entities})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ddamodel: reading output: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ddamodel: output file has no data rows")
	}
	return rows, nil
}

// BuildQMatrix assembles the primary Q-matrix (entities x windows) from
// parsed rows by taking the first column of each entity's stride group
// (the leading coefficient) per spec §3's AnalysisResult invariant that
// row count equals the entity count.
func BuildQMatrix(rows []OutputRow) [][]float64 {
	if len(rows) == 0 {
		return nil
	}
	numEntities := len(rows[0].Entities)
	q := make([][]float64, numEntities)
	for e := 0; e < numEntities; e++ {
		q[e] = make([]float64, len(rows))
		for w, row := range rows {
			if e < len(row.Entities) {
				q[e][w] = row.Entities[e][0]
			}
		}
	}
	return q
}
