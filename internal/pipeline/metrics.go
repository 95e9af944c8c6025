package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// InsertSizeSummary holds the summary statistics computed from a Picard
// CollectInsertSizeMetrics histogram.
type InsertSizeSummary struct {
	Count  float64 // total read pairs in the histogram
	Mean   float64
	Median float64
}

// SummarizeInsertSizes parses the histogram section of a Picard insert size
// metrics file and computes count-weighted summary statistics. The histogram
// follows a "## HISTOGRAM" marker as tab-separated insert_size/count pairs.
func SummarizeInsertSizes(path string) (InsertSizeSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return InsertSizeSummary{}, err
	}
	defer f.Close()

	var sizes, counts []float64
	inHistogram := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "## HISTOGRAM") {
			inHistogram = true
			continue
		}
		if !inHistogram || line == "" || strings.HasPrefix(line, "insert_size") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		size, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return InsertSizeSummary{}, fmt.Errorf("parse %s: bad insert size %q", path, fields[0])
		}
		count, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return InsertSizeSummary{}, fmt.Errorf("parse %s: bad count %q", path, fields[1])
		}
		sizes = append(sizes, size)
		counts = append(counts, count)
	}
	if err := sc.Err(); err != nil {
		return InsertSizeSummary{}, err
	}
	if len(sizes) == 0 {
		return InsertSizeSummary{}, fmt.Errorf("parse %s: no histogram found", path)
	}

	// Picard emits the histogram sorted by insert size, which is what the
	// weighted quantile requires.
	return InsertSizeSummary{
		Count:  floats.Sum(counts),
		Mean:   stat.Mean(sizes, counts),
		Median: stat.Quantile(0.5, stat.Empirical, sizes, counts),
	}, nil
}
