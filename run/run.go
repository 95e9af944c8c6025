package run

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/MedicalGeneticsGraz/ichorbatch/internal/bamutil"
	"github.com/MedicalGeneticsGraz/ichorbatch/internal/config"
	"github.com/MedicalGeneticsGraz/ichorbatch/internal/discover"
	"github.com/MedicalGeneticsGraz/ichorbatch/internal/pipeline"
	"github.com/MedicalGeneticsGraz/ichorbatch/internal/slurm"
)

var (
	inDir     string
	ichorPath string
	hmmPath   string
	ponPath   string
)

// deriveHelperPath places the duplicate-marking helper beside the ichorCNA
// installation. Clean first: with a trailing slash filepath.Dir would return
// the installation itself.
func deriveHelperPath(ichorPath string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(ichorPath)), "mark_duplicates_and_insert_sizes_for_TSO500_ichorCNA.py")
}

var RunCmd cli.Command = cli.Command{
	Name:      "run",
	Usage:     "Discover samples and submit one cluster job per sample",
	UsageText: "ichorbatch run --indir <dir> --ichorpath <dir> --pon <file> [options]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "indir",
			Aliases:     []string{"d"},
			Usage:       "Input directory holding the primary BAM files. All artifacts are written next to them.",
			Required:    true,
			TakesFile:   true,
			Destination: &inDir,
		},
		&cli.StringFlag{
			Name:        "ichorpath",
			Aliases:     []string{"p"},
			Usage:       "ichorCNA installation root.",
			Required:    true,
			TakesFile:   true,
			Destination: &ichorPath,
		},
		&cli.StringFlag{
			Name:        "hmmpath",
			Usage:       "Path to the duplicate-marking helper script.",
			DefaultText: "derived from --ichorpath",
			TakesFile:   true,
			Destination: &hmmPath,
		},
		&cli.StringFlag{
			Name:        "pon",
			Usage:       "Panel of normals file for the copy-number caller.",
			Required:    true,
			TakesFile:   true,
			Destination: &ponPath,
		},
		&cli.IntFlag{
			Name:        "cores",
			Aliases:     []string{"c"},
			Usage:       "Cores requested per job. Also sets the memory request.",
			Value:       24,
			DefaultText: "24",
		},
		&cli.BoolFlag{
			Name:  "local",
			Usage: "Run samples synchronously in this process instead of submitting to SLURM.",
			Value: false,
		},
	},
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		// Check if the input directory exists
		if info, err := os.Stat(inDir); err != nil || !info.IsDir() {
			return nil, cli.Exit("Error: Input directory does not exist", 1)
		}
		// Check if the ichorCNA installation exists
		if info, err := os.Stat(ichorPath); err != nil || !info.IsDir() {
			return nil, cli.Exit("Error: ichorCNA path does not exist", 1)
		}
		// Check if the panel of normals exists
		if _, err := os.Stat(ponPath); os.IsNotExist(err) {
			return nil, cli.Exit("Error: Panel of normals file does not exist", 1)
		}
		// Derive the helper location next to the ichorCNA installation
		// unless it was given explicitly
		if hmmPath == "" {
			hmmPath = deriveHelperPath(ichorPath)
		}
		if _, err := os.Stat(hmmPath); os.IsNotExist(err) {
			return nil, cli.Exit("Error: Duplicate-marking helper does not exist: "+hmmPath, 1)
		}
		return ctx, nil
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := config.Load()
		if err != nil {
			return cli.Exit("Error: Unable to load config: "+err.Error(), 1)
		}

		// Tee the driver log into the input directory so a run leaves a
		// durable record next to its artifacts.
		logPath := filepath.Join(inDir, fmt.Sprintf("ichorbatch_%s.log", time.Now().Format("20060102_150405")))
		logFile, err := os.Create(logPath)
		if err != nil {
			return cli.Exit("Error: Unable to create log file: "+err.Error(), 1)
		}
		defer logFile.Close()
		logWriter := io.MultiWriter(os.Stderr, logFile)
		log := slog.New(slog.NewTextHandler(logWriter, nil))
		slog.SetDefault(log)

		cores := int(cmd.Int("cores"))
		if clamped, adjusted := slurm.ClampCores(cores); adjusted {
			log.Warn("core count out of range, clamping", "requested", cores, "using", clamped)
			cores = clamped
		}

		runnerExe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate stage runner executable: %w", err)
		}

		execRunner := pipeline.NewExecRunner(logWriter, logWriter)
		d := &discover.Discoverer{
			Dir:     inDir,
			Probe:   bamutil.Check,
			Indexer: discover.SamtoolsIndexer(cfg.Samtools, execRunner),
			Log:     log,
		}
		samples, err := d.Discover(ctx)
		if err != nil {
			return err
		}
		log.Info("discovery finished", "samples", len(samples))

		// Warn early when a sample's header lacks chromosomes the read
		// counter will be asked for. The job itself still decides.
		for _, s := range samples {
			missing, err := bamutil.MissingChromosomes(s.BAM(), pipeline.Chromosomes())
			if err == nil && len(missing) > 0 {
				log.Warn("BAM header lacks expected chromosomes", "sample", s.Name, "missing", strings.Join(missing, ","))
			}
		}

		req := slurm.Request{
			InputDir:   inDir,
			IchorDir:   ichorPath,
			HelperPath: hmmPath,
			PoN:        ponPath,
			Cores:      cores,
			GCWig:      config.Resolve(ichorPath, cfg.GCWig),
			MapWig:     config.Resolve(ichorPath, cfg.MapWig),
			Centromere: config.Resolve(ichorPath, cfg.Centromere),
			RunnerExe:  runnerExe,
			Local:      cmd.Bool("local"),
		}
		dispatcher := slurm.NewDispatcher(req, log)
		return dispatcher.Dispatch(ctx, req, samples)
	},
}
