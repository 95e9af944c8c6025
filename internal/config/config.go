// Package config loads tool locations and reference data paths. Sites
// override the defaults with an ichorbatch.yaml in the working directory or
// in ~/.config; command line flags override the file again.
package config

import (
	"errors"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds everything that is fixed per installation rather than per
// invocation.
type Config struct {
	// Tool executables. Bare names are resolved through PATH.
	Samtools    string
	ReadCounter string
	Rscript     string

	// Relative locations under the ichorCNA installation root.
	IchorScript string // runIchorCNA.R
	GCWig       string
	MapWig      string
	Centromere  string

	ResultsPrefix string
	WindowSize    int
	MinQuality    int
}

// Load reads the optional config file and returns the effective Config.
// A missing config file is fine; a malformed one is not.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("ichorbatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/")

	v.SetDefault("samtools", "samtools")
	v.SetDefault("readcounter", "readCounter")
	v.SetDefault("rscript", "Rscript")
	v.SetDefault("ichor_script", "scripts/runIchorCNA.R")
	v.SetDefault("gc_wig", "inst/extdata/gc_hg19_1000kb.wig")
	v.SetDefault("map_wig", "inst/extdata/map_hg19_1000kb.wig")
	v.SetDefault("centromere", "inst/extdata/GRCh37.p13_centromere_UCSC-gapTable.txt")
	v.SetDefault("results_prefix", "ichorCNA")
	v.SetDefault("window_size", 1000000)
	v.SetDefault("min_quality", 20)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &Config{
		Samtools:      v.GetString("samtools"),
		ReadCounter:   v.GetString("readcounter"),
		Rscript:       v.GetString("rscript"),
		IchorScript:   v.GetString("ichor_script"),
		GCWig:         v.GetString("gc_wig"),
		MapWig:        v.GetString("map_wig"),
		Centromere:    v.GetString("centromere"),
		ResultsPrefix: v.GetString("results_prefix"),
		WindowSize:    v.GetInt("window_size"),
		MinQuality:    v.GetInt("min_quality"),
	}, nil
}

// Resolve joins a config path with the ichorCNA installation root unless it
// is already absolute, so sites can point individual reference files anywhere.
func Resolve(ichorDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ichorDir, path)
}
