package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Runner executes an external collaborator stage. Implementations must
// return a *StageFailure for a non-zero exit, a *TimeoutError when the
// time budget is exceeded, and a plain error for infrastructure faults.
type Runner interface {
	Run(ctx context.Context, stage Stage, timeout time.Duration) error
}

// ExecRunner shells out to the stage script with the configured
// interpreter, bounded by a per-stage timeout.
type ExecRunner struct {
	ScriptsDir  string
	Interpreter string
	log         *zap.Logger
}

// NewExecRunner creates an ExecRunner for scripts under scriptsDir.
func NewExecRunner(scriptsDir, interpreter string) *ExecRunner {
	return &ExecRunner{
		ScriptsDir:  scriptsDir,
		Interpreter: interpreter,
		log:         zap.L().With(zap.String("component", "runner")),
	}
}

func (r *ExecRunner) Run(ctx context.Context, stage Stage, timeout time.Duration) error {
	script := filepath.Join(r.ScriptsDir, stage.Dir, stage.Script)
	if _, err := os.Stat(script); err != nil {
		if os.IsNotExist(err) {
			return eris.Errorf("pipeline: stage script not found: %s", script)
		}
		return eris.Wrapf(err, "pipeline: stat stage script %s", script)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.Interpreter, script)
	cmd.Dir = r.ScriptsDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.log.Debug("stage script finished",
		zap.String("stage", stage.ID()),
		zap.String("script", stage.Script),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", err == nil))

	if runCtx.Err() == context.DeadlineExceeded {
		return &TimeoutError{Stage: stage, Timeout: timeout}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output := stderr.String()
			if output == "" {
				output = stdout.String()
			}
			return &StageFailure{Stage: stage, Output: output}
		}
		return eris.Wrapf(err, "pipeline: run stage %s", stage.ID())
	}
	return nil
}
