// Package slurm submits one cluster job per sample. Parallelism lives
// entirely in the scheduler: samples never wait on each other, and a refused
// submission for one sample leaves the remaining submissions untouched.
package slurm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MedicalGeneticsGraz/ichorbatch/internal/pipeline"
)

const (
	// Memory request per job: a fixed overhead plus a per-core share for
	// the scaffold-parallel duplicate marking.
	memPerCoreMB    = 2000
	memOverheadMB   = 15000
	minCores        = 2
	maxCores        = 24
	timestampLayout = "20060102_150405"
)

// MemoryMB computes the job memory request in MB for a core count.
func MemoryMB(cores int) int {
	return cores*memPerCoreMB + memOverheadMB
}

// ClampCores bounds a requested core count to the supported range and
// reports whether it had to be adjusted.
func ClampCores(cores int) (int, bool) {
	switch {
	case cores < minCores:
		return minCores, true
	case cores > maxCores:
		return maxCores, true
	default:
		return cores, false
	}
}

// LogPaths returns the per-job stdout/stderr log pair. The timestamp keeps
// repeated submissions of the same sample from clobbering each other's logs.
func LogPaths(dir, sample string, t time.Time) (stdout, stderr string) {
	stamp := t.Format(timestampLayout)
	stdout = filepath.Join(dir, fmt.Sprintf("%s_%s_SLURM.log", sample, stamp))
	stderr = filepath.Join(dir, fmt.Sprintf("%s_%s_SLURM.err", sample, stamp))
	return stdout, stderr
}

// Job is one sample's cluster submission.
type Job struct {
	Sample  pipeline.Sample
	Cores   int
	MemMB   int
	LogPath string
	ErrPath string
	Argv    []string // stage runner invocation, six positional args after the subcommand
}

// Request carries everything the dispatcher validates and passes through to
// the stage runner.
type Request struct {
	InputDir   string
	IchorDir   string
	HelperPath string
	PoN        string
	Cores      int

	// Reference data validated before submission.
	GCWig      string
	MapWig     string
	Centromere string

	RunnerExe string // the ichorbatch binary submitted as each job's command
	Local     bool   // run jobs synchronously in-process instead of via sbatch
}

// Submitter runs a built job, either through sbatch or directly. Tests
// substitute a recording fake.
type Submitter interface {
	Submit(ctx context.Context, job Job) error
}

// Dispatcher fans the sample list out to the scheduler.
type Dispatcher struct {
	Submit Submitter
	Log    *slog.Logger
	Now    func() time.Time
}

// NewDispatcher picks the submission mode: sbatch when available and not
// overridden, otherwise synchronous local execution.
func NewDispatcher(req Request, log *slog.Logger) *Dispatcher {
	var sub Submitter
	if req.Local || !haveSbatch() {
		if !req.Local {
			log.Warn("sbatch not found on PATH, running samples locally")
		}
		sub = &localSubmitter{}
	} else {
		sub = &sbatchSubmitter{}
	}
	return &Dispatcher{Submit: sub, Log: log, Now: time.Now}
}

func haveSbatch() bool {
	_, err := exec.LookPath("sbatch")
	return err == nil
}

// Validate fail-fasts on every path a job will need. Nothing is submitted
// when any of them is wrong.
func (r Request) Validate() error {
	info, err := os.Stat(r.RunnerExe)
	if err != nil {
		return fmt.Errorf("stage runner executable: %w", err)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("stage runner %s is not executable", r.RunnerExe)
	}
	for _, dir := range []string{r.InputDir, r.IchorDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
	}
	for _, file := range []string{r.HelperPath, r.PoN, r.GCWig, r.MapWig, r.Centromere} {
		if _, err := os.Stat(file); err != nil {
			return err
		}
	}
	return nil
}

// BuildJob assembles the submission for one sample.
func (d *Dispatcher) BuildJob(req Request, s pipeline.Sample) Job {
	stdout, stderr := LogPaths(req.InputDir, s.Name, d.Now())
	return Job{
		Sample:  s,
		Cores:   req.Cores,
		MemMB:   MemoryMB(req.Cores),
		LogPath: stdout,
		ErrPath: stderr,
		Argv: []string{
			req.RunnerExe, "sample",
			s.Name,
			req.InputDir,
			req.IchorDir,
			strconv.Itoa(req.Cores),
			req.HelperPath,
			req.PoN,
		},
	}
}

// Dispatch validates once, then submits one job per sample. A submission
// failure is logged for that sample and the loop moves on; the error count is
// reported at the end.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, samples []pipeline.Sample) error {
	if err := req.Validate(); err != nil {
		return err
	}
	failed := 0
	for _, s := range samples {
		job := d.BuildJob(req, s)
		d.Log.Info("enqueueing sample", "sample", s.Name, "cores", job.Cores, "mem_mb", job.MemMB, "log", job.LogPath)
		if err := d.Submit.Submit(ctx, job); err != nil {
			d.Log.Error("submission failed", "sample", s.Name, "error", err.Error())
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d job submissions failed", failed, len(samples))
	}
	d.Log.Info("all jobs submitted", "count", len(samples))
	return nil
}

// SbatchArgs returns the sbatch argument list for a job: one task, the
// requested cores and memory, the timestamped log pair, and the stage runner
// command line. The runner invocation goes through --wrap: sbatch only
// accepts #!-scripts as positional arguments, never a compiled binary.
func SbatchArgs(job Job) []string {
	return []string{
		"--ntasks=1",
		"--cpus-per-task=" + strconv.Itoa(job.Cores),
		"--mem=" + strconv.Itoa(job.MemMB),
		"--job-name=ichorbatch_" + job.Sample.Name,
		"--output=" + job.LogPath,
		"--error=" + job.ErrPath,
		"--wrap=" + shellJoin(job.Argv),
	}
}

// shellJoin single-quotes every argument so the shell sbatch wraps the
// command in re-splits it exactly as built, whatever the sample names hold.
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}

type sbatchSubmitter struct{}

func (sbatchSubmitter) Submit(ctx context.Context, job Job) error {
	cmd := exec.CommandContext(ctx, "sbatch", SbatchArgs(job)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("sbatch: %w: %s", err, out)
	}
	return nil
}

// localSubmitter is the fallback mode: the stage runner is executed in this
// process's lifetime, one sample at a time, with its output teed to the same
// log pair a cluster job would have written.
type localSubmitter struct{}

func (localSubmitter) Submit(ctx context.Context, job Job) error {
	stdout, err := os.Create(job.LogPath)
	if err != nil {
		return err
	}
	defer stdout.Close()
	stderr, err := os.Create(job.ErrPath)
	if err != nil {
		return err
	}
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, job.Argv[0], job.Argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd.String(), err)
	}
	return nil
}
