package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Runner executes external commands. The production implementation shells out
// through os/exec; tests substitute a recording fake so no bioinformatics
// tools need to be installed.
type Runner interface {
	// Run executes name with args and waits for it to finish. A non-zero
	// exit status is returned as an error.
	Run(ctx context.Context, name string, args ...string) error

	// RunToFile executes name with args, streaming the command's stdout
	// into the file at outPath. Used for tools that write their result to
	// stdout, like readCounter.
	RunToFile(ctx context.Context, outPath string, name string, args ...string) error
}

type execRunner struct {
	stdout io.Writer
	stderr io.Writer
}

// NewExecRunner returns a Runner backed by os/exec. The command's stdout and
// stderr are forwarded to the given writers, which inside a cluster job are
// the job's log file pair.
func NewExecRunner(stdout, stderr io.Writer) Runner {
	return &execRunner{stdout: stdout, stderr: stderr}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd.String(), err)
	}
	return nil
}

func (r *execRunner) RunToFile(ctx context.Context, outPath string, name string, args ...string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = r.stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd.String(), err)
	}
	return out.Close()
}
