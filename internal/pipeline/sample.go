package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sample is one unit of work: a primary BAM file in the input directory,
// identified by its base name. All derived artifact paths are functions of
// the base name so that repeated runs find the same files again.
type Sample struct {
	Name string // base name, input file name without the .bam extension
	Dir  string // input directory holding the BAM and all derived artifacts
}

// SampleFromBAM derives a Sample from a primary BAM file path.
func SampleFromBAM(path string) Sample {
	base := strings.TrimSuffix(filepath.Base(path), ".bam")
	return Sample{Name: base, Dir: filepath.Dir(path)}
}

// BAM returns the path of the primary input BAM file.
func (s Sample) BAM() string {
	return filepath.Join(s.Dir, s.Name+".bam")
}

// MarkdupBAM returns the path of the duplicates-marked BAM, the stage 1 artifact.
func (s Sample) MarkdupBAM() string {
	return filepath.Join(s.Dir, s.Name+".markdup.bam")
}

// Wig returns the path of the read-count wiggle file, the stage 2 artifact.
func (s Sample) Wig() string {
	return filepath.Join(s.Dir, s.Name+".wig")
}

// ResultsDir returns the ichorCNA output directory, the stage 3 artifact.
func (s Sample) ResultsDir(prefix string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("Results_%s_%s", prefix, s.Name))
}

// InsertSizeMetrics returns the path where the duplicate-marking helper leaves
// the Picard insert size metrics for this sample.
func (s Sample) InsertSizeMetrics() string {
	return filepath.Join(s.Dir, "insert_sizes", s.Name+"-insert_size_metrics.txt")
}

// IndexPath returns the index path for a BAM file, always <bamfile>.bai.
func IndexPath(bam string) string {
	return bam + ".bai"
}

// FileDone reports whether a stage's file artifact marks the stage complete.
// A regular, non-empty file counts; anything else does not. Contents are not
// validated beyond that.
func FileDone(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// DirDone reports whether a stage's directory artifact marks the stage
// complete. Existence alone counts; the directory's contents are not
// inspected.
func DirDone(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Chromosomes returns the reference sequences passed to the read counter:
// the human autosomes 1-22 plus X and Y.
func Chromosomes() []string {
	chroms := make([]string, 0, 24)
	for i := 1; i <= 22; i++ {
		chroms = append(chroms, fmt.Sprintf("%d", i))
	}
	return append(chroms, "X", "Y")
}
