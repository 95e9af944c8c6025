package sample

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/MedicalGeneticsGraz/ichorbatch/internal/bamutil"
	"github.com/MedicalGeneticsGraz/ichorbatch/internal/config"
	"github.com/MedicalGeneticsGraz/ichorbatch/internal/pipeline"
)

var (
	sampleName string
	inDir      string
	ichorDir   string
	threadsArg string
	helperPath string
	ponPath    string
)

// SampleCmd is what each cluster job executes. The dispatcher builds the
// argument list; running it by hand with the same six arguments resumes a
// sample wherever its artifacts left off.
var SampleCmd cli.Command = cli.Command{
	Name:      "sample",
	Usage:     "Run the three pipeline stages for a single sample",
	UsageText: "ichorbatch sample <name> <input dir> <ichorCNA dir> <threads> <helper> <panel of normals>",
	ArgsUsage: "<name> <input dir> <ichorCNA dir> <threads> <helper> <panel of normals>",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:        "name",
			UsageText:   "Sample base name, the input file name without its .bam extension.",
			Destination: &sampleName,
		},
		&cli.StringArg{
			Name:        "indir",
			UsageText:   "Input directory holding <name>.bam; artifacts are written here.",
			Destination: &inDir,
		},
		&cli.StringArg{
			Name:        "ichorpath",
			UsageText:   "ichorCNA installation root.",
			Destination: &ichorDir,
		},
		&cli.StringArg{
			Name:        "threads",
			UsageText:   "Worker bound passed to the duplicate-marking helper.",
			Destination: &threadsArg,
		},
		&cli.StringArg{
			Name:        "helper",
			UsageText:   "Duplicate-marking helper executable.",
			Destination: &helperPath,
		},
		&cli.StringArg{
			Name:        "pon",
			UsageText:   "Panel of normals file.",
			Destination: &ponPath,
		},
	},
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		// Check if the correct number of arguments is provided
		if cmd.Args().Len() != 6 {
			cli.ShowSubcommandHelp(cmd)
			return nil, cli.Exit("Error: Incorrect number of arguments. Expected 6 arguments while "+strconv.Itoa(cmd.Args().Len())+" were given", 1)
		}
		// Check if the input directory exists
		if info, err := os.Stat(inDir); err != nil || !info.IsDir() {
			return nil, cli.Exit("Error: Input directory does not exist", 1)
		}
		// Check if the ichorCNA installation exists
		if info, err := os.Stat(ichorDir); err != nil || !info.IsDir() {
			return nil, cli.Exit("Error: ichorCNA path does not exist", 1)
		}
		// Check if the helper exists
		if _, err := os.Stat(helperPath); os.IsNotExist(err) {
			return nil, cli.Exit("Error: Duplicate-marking helper does not exist", 1)
		}
		// Check if the panel of normals exists
		if _, err := os.Stat(ponPath); os.IsNotExist(err) {
			return nil, cli.Exit("Error: Panel of normals file does not exist", 1)
		}
		return ctx, nil
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		threads, err := strconv.Atoi(threadsArg)
		if err != nil || threads < 1 {
			return cli.Exit("Error: Thread count must be a positive integer", 1)
		}

		cfg, err := config.Load()
		if err != nil {
			return cli.Exit("Error: Unable to load config: "+err.Error(), 1)
		}

		// An interrupt kills the running external tool through the context;
		// the markdup stage's temp dir cleanup still runs on that path.
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		s := pipeline.Sample{Name: sampleName, Dir: inDir}

		if missing, err := bamutil.MissingChromosomes(s.BAM(), pipeline.Chromosomes()); err == nil && len(missing) > 0 {
			log.Warn("BAM header lacks expected chromosomes", "sample", s.Name, "missing", strings.Join(missing, ","))
		}

		params := pipeline.Params{
			Sample:        s,
			Threads:       threads,
			HelperPath:    helperPath,
			PoN:           ponPath,
			GCWig:         config.Resolve(ichorDir, cfg.GCWig),
			MapWig:        config.Resolve(ichorDir, cfg.MapWig),
			Centromere:    config.Resolve(ichorDir, cfg.Centromere),
			ReadCounter:   cfg.ReadCounter,
			Rscript:       cfg.Rscript,
			IchorScript:   config.Resolve(ichorDir, cfg.IchorScript),
			ResultsPrefix: cfg.ResultsPrefix,
			WindowSize:    cfg.WindowSize,
			MinQuality:    cfg.MinQuality,
		}
		runner := pipeline.NewExecRunner(os.Stdout, os.Stderr)
		return pipeline.NewPipeline(params, runner, log).Run(ctx)
	},
}
