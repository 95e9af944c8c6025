// Package bamutil checks candidate BAM files before work is scheduled for
// them. Only the container format is inspected; read data is never decoded.
package bamutil

import (
	"fmt"
	"os"

	"github.com/biogo/hts/bam"
)

// Check opens path as a BAM file and reads its header. It returns an error
// when the file is not a readable BAM, so that a stray file matching the
// *.bam pattern is never submitted as a sample.
func Check(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := bam.NewReader(f, 0)
	if err != nil {
		return fmt.Errorf("%s is not a readable BAM file: %w", path, err)
	}
	return b.Close()
}

// ReferenceNames returns the reference sequence names from the BAM header, in
// header order. Used to warn when a sample's header lacks the chromosomes the
// read counter will be asked for.
func ReferenceNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := bam.NewReader(f, 0)
	if err != nil {
		return nil, fmt.Errorf("%s is not a readable BAM file: %w", path, err)
	}
	defer b.Close()

	refs := b.Header().Refs()
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name())
	}
	return names, nil
}

// MissingChromosomes returns the entries of want absent from the BAM header
// at path.
func MissingChromosomes(path string, want []string) ([]string, error) {
	names, err := ReferenceNames(path)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	var missing []string
	for _, w := range want {
		if !have[w] {
			missing = append(missing, w)
		}
	}
	return missing, nil
}
