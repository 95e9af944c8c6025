// Package discover scans an input directory for primary BAM files and turns
// them into the sample list the dispatcher submits jobs for.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"v.io/v23/glob"

	"github.com/MedicalGeneticsGraz/ichorbatch/internal/pipeline"
)

// DefaultExclude matches derived BAM files that must never be treated as
// fresh inputs: the pipeline's own duplicates-marked output and the helper's
// mate-fixed intermediate.
const DefaultExclude = "{*.markdup.bam,*.mateFixed.sorted.bam}"

// Indexer builds a BAM index. The production implementation shells out to
// samtools.
type Indexer interface {
	Index(ctx context.Context, bamPath, indexPath string) error
}

// IndexerFunc adapts a function to the Indexer interface.
type IndexerFunc func(ctx context.Context, bamPath, indexPath string) error

func (f IndexerFunc) Index(ctx context.Context, bamPath, indexPath string) error {
	return f(ctx, bamPath, indexPath)
}

// SamtoolsIndexer returns an Indexer that runs "<samtools> index <bam> <bai>"
// through the given runner.
func SamtoolsIndexer(samtools string, r pipeline.Runner) Indexer {
	return IndexerFunc(func(ctx context.Context, bamPath, indexPath string) error {
		return r.Run(ctx, samtools, "index", bamPath, indexPath)
	})
}

// Discoverer lists eligible samples in a directory and makes sure each has a
// companion index file.
type Discoverer struct {
	Dir     string
	Exclude string // glob pattern for derivative files; DefaultExclude when empty

	// Probe verifies a candidate is a readable BAM. Candidates failing the
	// probe are skipped with a warning. Nil disables the check.
	Probe func(path string) error

	Indexer Indexer
	Log     *slog.Logger
}

// Discover returns the samples to process, sorted by name for stable logs.
// The returned slice is a fresh value; callers pass it on explicitly, nothing
// is kept in package state. An empty directory yields an empty list, not an
// error.
//
// As a side effect, a missing <bam>.bai is generated for every discovered
// sample.
func (d *Discoverer) Discover(ctx context.Context) ([]pipeline.Sample, error) {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	pattern := d.Exclude
	if pattern == "" {
		pattern = DefaultExclude
	}
	excluded, err := glob.Parse(pattern)
	if err != nil {
		return nil, fmt.Errorf("parse exclude pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var samples []pipeline.Sample
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".bam") {
			continue
		}
		if excluded.Head().Match(name) {
			continue
		}
		if entry.IsDir() {
			// Never treat a directory as a sample.
			log.Warn("matched path is a directory, skipping", "path", filepath.Join(d.Dir, name))
			continue
		}
		path := filepath.Join(d.Dir, name)
		if d.Probe != nil {
			if err := d.Probe(path); err != nil {
				log.Warn("unreadable BAM, skipping", "path", path, "error", err.Error())
				continue
			}
		}
		sample := pipeline.SampleFromBAM(path)
		if err := d.ensureIndex(ctx, sample, log); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}

func (d *Discoverer) ensureIndex(ctx context.Context, s pipeline.Sample, log *slog.Logger) error {
	indexPath := pipeline.IndexPath(s.BAM())
	if _, err := os.Stat(indexPath); err == nil {
		return nil
	}
	log.Info("index missing, generating", "sample", s.Name, "index", indexPath)
	if err := d.Indexer.Index(ctx, s.BAM(), indexPath); err != nil {
		return fmt.Errorf("index %s: %w", s.BAM(), err)
	}
	return nil
}
