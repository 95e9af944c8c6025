package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// StageState tracks one stage of a sample's pipeline.
type StageState string

const (
	StagePending StageState = "pending"
	StageSkipped StageState = "skipped"
	StageRunning StageState = "running"
	StageDone    StageState = "done"
	StageFailed  StageState = "failed"
)

// Params carries everything the stage runner needs for one sample. The
// dispatcher passes the same values on the job command line; nothing is
// shared between samples.
type Params struct {
	Sample     Sample
	Threads    int    // worker bound handed to the duplicate-marking helper
	HelperPath string // duplicate-marking helper executable
	PoN        string // panel of normals file

	// Read-only reference data for the copy-number caller.
	GCWig      string
	MapWig     string
	Centromere string

	// Tool executables, resolved from config.
	ReadCounter string
	Rscript     string
	IchorScript string // runIchorCNA.R, resolved under IchorDir

	ResultsPrefix string // Results_<prefix>_<sample>
	WindowSize    int
	MinQuality    int
}

// Stage is one step of the per-sample pipeline. Done is the resume predicate:
// when it reports true the stage is skipped without invoking Run. Keeping the
// predicate explicit (rather than an inline check) makes the
// existence-equals-completion contract testable on its own.
type Stage struct {
	Name string
	Done func() bool
	Run  func(ctx context.Context) error
}

// Pipeline runs the three ordered stages for one sample with idempotent
// resume keyed on artifact presence.
type Pipeline struct {
	Params Params
	Runner Runner
	Log    *slog.Logger
}

// NewPipeline builds a pipeline for one sample. A nil logger defaults to
// slog.Default.
func NewPipeline(p Params, r Runner, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{Params: p, Runner: r, Log: log.With("sample", p.Sample.Name)}
}

// Stages returns the ordered stage list for this sample.
func (p *Pipeline) Stages() []Stage {
	s := p.Params.Sample
	return []Stage{
		{
			Name: "markdup",
			Done: func() bool { return FileDone(s.MarkdupBAM()) },
			Run:  p.runMarkdup,
		},
		{
			Name: "readcount",
			Done: func() bool { return FileDone(s.Wig()) },
			Run:  p.runReadCount,
		},
		{
			// The skip check is existence-only: a results directory left
			// behind by a crashed run still counts as complete.
			Name: "ichorcna",
			Done: func() bool { return DirDone(s.ResultsDir(p.Params.ResultsPrefix)) },
			Run:  p.runIchorCNA,
		},
	}
}

// Run executes the stages in order. The first stage failure aborts the
// remaining stages; the error propagates to the job's exit code and is
// visible only in this job's logs.
func (p *Pipeline) Run(ctx context.Context) error {
	for _, stage := range p.Stages() {
		log := p.Log.With("stage", stage.Name)
		log.Debug("queued", "state", StagePending)
		if stage.Done() {
			log.Info("artifact present, skipping", "state", StageSkipped)
			continue
		}
		log.Info("starting", "state", StageRunning)
		if err := stage.Run(ctx); err != nil {
			log.Error("stage failed", "state", StageFailed, "error", err.Error())
			return fmt.Errorf("stage %s for sample %s: %w", stage.Name, p.Params.Sample.Name, err)
		}
		log.Info("finished", "state", StageDone)
	}
	return nil
}

// runMarkdup invokes the duplicate-marking helper with a sample-scoped
// temporary directory. The directory is removed again on every exit path;
// cancellation kills the helper through the context, after which the deferred
// cleanup still runs.
func (p *Pipeline) runMarkdup(ctx context.Context) error {
	s := p.Params.Sample

	tmpDir, err := os.MkdirTemp("", "markdup-"+s.Name+"-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	err = p.Runner.Run(ctx, p.Params.HelperPath,
		"--temp-dir", tmpDir,
		"--input-bam", s.BAM(),
		"--output-dir", s.Dir,
		"--processes", strconv.Itoa(p.Params.Threads),
	)
	if err != nil {
		return err
	}

	// The helper also emits Picard insert size metrics. Summarize them when
	// present; a missing metrics file is not an error.
	summary, err := SummarizeInsertSizes(s.InsertSizeMetrics())
	if err != nil {
		p.Log.Warn("no insert size summary", "error", err.Error())
		return nil
	}
	p.Log.Info("insert sizes",
		"reads", summary.Count,
		"mean", fmt.Sprintf("%.1f", summary.Mean),
		"median", fmt.Sprintf("%.1f", summary.Median),
	)
	return nil
}

// runReadCount counts reads in fixed windows over the autosomes plus X and Y,
// writing the counter's stdout to the sample's wig file. A partial wig from a
// failed run is removed so it cannot satisfy the resume predicate later.
func (p *Pipeline) runReadCount(ctx context.Context) error {
	s := p.Params.Sample
	err := p.Runner.RunToFile(ctx, s.Wig(), p.Params.ReadCounter,
		"--window", strconv.Itoa(p.Params.WindowSize),
		"--quality", strconv.Itoa(p.Params.MinQuality),
		"--chromosome", strings.Join(Chromosomes(), ","),
		s.MarkdupBAM(),
	)
	if err != nil {
		os.Remove(s.Wig())
		return err
	}
	return nil
}

// runIchorCNA creates the results directory and calls the R copy-number
// caller with the pipeline's fixed hyperparameter set.
func (p *Pipeline) runIchorCNA(ctx context.Context) error {
	s := p.Params.Sample
	outDir := s.ResultsDir(p.Params.ResultsPrefix)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	return p.Runner.Run(ctx, p.Params.Rscript, p.IchorArgs(outDir)...)
}

// IchorArgs assembles the runIchorCNA.R argument list. The hyperparameters
// are fixed for the TSO500 assay; only the sample identity and the reference
// file paths vary.
func (p *Pipeline) IchorArgs(outDir string) []string {
	s := p.Params.Sample
	return []string{
		p.Params.IchorScript,
		"--id", s.Name,
		"--WIG", s.Wig(),
		"--ploidy", "c(2,3)",
		"--normal", "c(0.5,0.6,0.7,0.8,0.9)",
		"--maxCN", "5",
		"--gcWig", p.Params.GCWig,
		"--mapWig", p.Params.MapWig,
		"--centromere", p.Params.Centromere,
		"--normalPanel", p.Params.PoN,
		"--includeHOMD", "False",
		"--chrs", `c(1:22, "X")`,
		"--chrTrain", "c(1:22)",
		"--estimateNormal", "True",
		"--estimatePloidy", "True",
		"--estimateScPrevalence", "True",
		"--scStates", "c(1,3)",
		"--txnE", "0.9999",
		"--txnStrength", "10000",
		"--outDir", outDir,
	}
}
