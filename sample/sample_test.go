package sample

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestSampleRejectsWrongArgumentCount(t *testing.T) {
	cmd := SampleCmd
	err := cmd.Run(context.Background(), []string{"sample", "S1", "/data"})
	require.Error(t, err)
	require.ErrorContains(t, err, "arguments")
}

func TestSampleWithoutArgumentsFailsBeforeAnyWork(t *testing.T) {
	cmd := SampleCmd
	err := cmd.Run(context.Background(), []string{"sample"})
	require.Error(t, err)
}

func TestSampleRejectsMissingIchorPath(t *testing.T) {
	dir := t.TempDir()
	cmd := SampleCmd
	err := cmd.Run(context.Background(), []string{
		"sample",
		"S1", dir, filepath.Join(dir, "absent"), "4",
		filepath.Join(dir, "absent.py"), filepath.Join(dir, "absent.rds"),
	})
	require.Error(t, err)
	require.ErrorContains(t, err, "ichorCNA path")

	var coder cli.ExitCoder
	require.ErrorAs(t, err, &coder)
	require.Equal(t, 1, coder.ExitCode())

	// Validation failed up front: no stage ran, no artifact appeared.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Empty(t, entries)
}
