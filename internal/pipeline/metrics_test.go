package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const picardMetricsFixture = `## htsjdk.samtools.metrics.StringHeader
# CollectInsertSizeMetrics I=S1.markdup.bam O=S1-insert_size_metrics.txt
## METRICS CLASS	picard.analysis.InsertSizeMetrics
MEDIAN_INSERT_SIZE	MODE_INSERT_SIZE	MEDIAN_ABSOLUTE_DEVIATION
200	200	50

## HISTOGRAM	java.lang.Integer
insert_size	All_Reads.fr_count
100	1
200	2
300	1
`

func writeMetricsFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "S1-insert_size_metrics.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSummarizeInsertSizes(t *testing.T) {
	summary, err := SummarizeInsertSizes(writeMetricsFixture(t, picardMetricsFixture))
	require.NoError(t, err)
	require.Equal(t, 4.0, summary.Count)
	// Weighted mean: (100*1 + 200*2 + 300*1) / 4
	require.InDelta(t, 200.0, summary.Mean, 1e-9)
	require.InDelta(t, 200.0, summary.Median, 1e-9)
}

func TestSummarizeInsertSizesNoHistogram(t *testing.T) {
	_, err := SummarizeInsertSizes(writeMetricsFixture(t, "## METRICS CLASS\nno histogram here\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no histogram")
}

func TestSummarizeInsertSizesMissingFile(t *testing.T) {
	_, err := SummarizeInsertSizes(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestSummarizeInsertSizesBadCount(t *testing.T) {
	fixture := "## HISTOGRAM\ninsert_size\tAll_Reads.fr_count\n100\tnot-a-number\n"
	_, err := SummarizeInsertSizes(writeMetricsFixture(t, fixture))
	require.Error(t, err)
}
