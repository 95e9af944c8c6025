package discover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MedicalGeneticsGraz/ichorbatch/internal/pipeline"
)

type recordingIndexer struct {
	calls map[string]string // bam -> index
	err   error
}

func (r *recordingIndexer) Index(ctx context.Context, bamPath, indexPath string) error {
	if r.calls == nil {
		r.calls = map[string]string{}
	}
	r.calls[bamPath] = indexPath
	return r.err
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func sampleNames(samples []pipeline.Sample) []string {
	names := make([]string, 0, len(samples))
	for _, s := range samples {
		names = append(names, s.Name)
	}
	return names
}

func TestDiscoverExcludesDerivatives(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "S1.bam")
	writeFile(t, dir, "S1.bam.bai")
	writeFile(t, dir, "S2.bam")
	writeFile(t, dir, "S2.bam.bai")
	writeFile(t, dir, "S1.markdup.bam")
	writeFile(t, dir, "S2.mateFixed.sorted.bam")
	writeFile(t, dir, "notes.txt")

	d := &Discoverer{Dir: dir, Indexer: &recordingIndexer{}}
	samples, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"S1", "S2"}, sampleNames(samples))
}

func TestDiscoverGeneratesMissingIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "S1.bam")
	writeFile(t, dir, "S1.bam.bai")
	s2 := writeFile(t, dir, "S2.bam") // no index

	indexer := &recordingIndexer{}
	d := &Discoverer{Dir: dir, Indexer: indexer}
	samples, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"S1", "S2"}, sampleNames(samples))

	// Exactly one index invocation, for S2, with the <bamfile>.bai convention.
	require.Len(t, indexer.calls, 1)
	require.Equal(t, s2+".bai", indexer.calls[s2])
}

func TestDiscoverSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "weird.bam"), 0o755))
	writeFile(t, dir, "S1.bam")
	writeFile(t, dir, "S1.bam.bai")

	d := &Discoverer{Dir: dir, Indexer: &recordingIndexer{}}
	samples, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"S1"}, sampleNames(samples))
}

func TestDiscoverSkipsUnreadableBAMs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "S1.bam")
	writeFile(t, dir, "S1.bam.bai")
	bad := writeFile(t, dir, "truncated.bam")

	d := &Discoverer{
		Dir:     dir,
		Indexer: &recordingIndexer{},
		Probe: func(path string) error {
			if path == bad {
				return errors.New("bad magic")
			}
			return nil
		},
	}
	samples, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"S1"}, sampleNames(samples))
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	d := &Discoverer{Dir: t.TempDir(), Indexer: &recordingIndexer{}}
	samples, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Empty(t, samples)
}

func TestDiscoverMissingDirectory(t *testing.T) {
	d := &Discoverer{Dir: filepath.Join(t.TempDir(), "absent"), Indexer: &recordingIndexer{}}
	_, err := d.Discover(context.Background())
	require.Error(t, err)
}

func TestDiscoverIndexFailureAborts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "S1.bam")

	d := &Discoverer{Dir: dir, Indexer: &recordingIndexer{err: errors.New("samtools: exit status 1")}}
	_, err := d.Discover(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "index")
}
