package run

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestDeriveHelperPath(t *testing.T) {
	want := "/opt/mark_duplicates_and_insert_sizes_for_TSO500_ichorCNA.py"
	require.Equal(t, want, deriveHelperPath("/opt/ichorCNA"))
	// A trailing slash must not pull the helper inside the installation.
	require.Equal(t, want, deriveHelperPath("/opt/ichorCNA/"))
}

func TestRunWithoutArgumentsFailsBeforeAnyWork(t *testing.T) {
	inDir = ""
	cmd := RunCmd
	err := cmd.Run(context.Background(), []string{"run"})
	require.Error(t, err)
	require.ErrorContains(t, err, "indir")
	// Flag parsing failed, so no path was ever validated or touched.
	require.Empty(t, inDir)
}

func TestRunRejectsMissingIchorPath(t *testing.T) {
	dir := t.TempDir()
	cmd := RunCmd
	err := cmd.Run(context.Background(), []string{
		"run",
		"--indir", dir,
		"--ichorpath", filepath.Join(dir, "absent"),
		"--pon", filepath.Join(dir, "absent.rds"),
	})
	require.Error(t, err)
	require.ErrorContains(t, err, "ichorCNA path")

	var coder cli.ExitCoder
	require.ErrorAs(t, err, &coder)
	require.Equal(t, 1, coder.ExitCode())

	// Validation failed up front: nothing was written into the input
	// directory, not even the run log.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Empty(t, entries)
}
