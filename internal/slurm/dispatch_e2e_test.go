package slurm

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MedicalGeneticsGraz/ichorbatch/internal/discover"
)

// Covers the whole driver path short of executing tools: two eligible BAMs,
// one missing its index, end with two submitted jobs and an index call.
func TestDiscoverThenDispatch(t *testing.T) {
	req := testRequest(t)
	for _, name := range []string{"S1.bam", "S1.bam.bai", "S2.bam"} {
		require.NoError(t, os.WriteFile(filepath.Join(req.InputDir, name), []byte("x"), 0o644))
	}

	indexed := map[string]string{}
	d := &discover.Discoverer{
		Dir: req.InputDir,
		Indexer: discover.IndexerFunc(func(ctx context.Context, bamPath, indexPath string) error {
			indexed[bamPath] = indexPath
			return nil
		}),
	}
	samples, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.Equal(t, map[string]string{
		filepath.Join(req.InputDir, "S2.bam"): filepath.Join(req.InputDir, "S2.bam.bai"),
	}, indexed)

	sub := &recordingSubmitter{}
	dispatcher := &Dispatcher{Submit: sub, Log: slog.Default(), Now: time.Now}
	require.NoError(t, dispatcher.Dispatch(context.Background(), req, samples))
	require.Equal(t, []string{"S1", "S2"}, sub.submitted)

	logName := regexp.MustCompile(`^S[12]_\d{8}_\d{6}_SLURM\.log$`)
	for _, s := range samples {
		job := dispatcher.BuildJob(req, s)
		require.Regexp(t, logName, filepath.Base(job.LogPath))
	}
}
