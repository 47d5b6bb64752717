package toolscript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// Process is a started tool run. Stdout must be drained before Wait.
type Process interface {
	Stdout() io.Reader
	Wait() error
}

// Launcher starts the tool with the JSON run payload as its only extra argument.
type Launcher interface {
	Start(ctx context.Context, payload []byte) (Process, error)
}

// ExecLauncher runs Command (program followed by fixed arguments) as a child
// process. Cancelling ctx kills the child.
type ExecLauncher struct {
	Command []string
	Dir     string
	Env     []string
	// Stderr receives the child's standard error; nil discards it.
	Stderr io.Writer
	// WaitDelay bounds how long Wait blocks on I/O after the child exits or is killed.
	WaitDelay time.Duration
}

func (l *ExecLauncher) Start(ctx context.Context, payload []byte) (Process, error) {
	if len(l.Command) == 0 {
		return nil, fmt.Errorf("toolscript: empty command")
	}

	args := append(append([]string{}, l.Command[1:]...), string(payload))
	cmd := exec.CommandContext(ctx, l.Command[0], args...)
	cmd.Dir = l.Dir
	if len(l.Env) > 0 {
		cmd.Env = l.Env
	}
	cmd.Stderr = l.Stderr
	cmd.WaitDelay = l.WaitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, stdout: stdout}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }

func (p *execProcess) Wait() error { return p.cmd.Wait() }

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusCanceled  Status = "canceled"
)

// Result is how a supervised run ended.
type Result struct {
	Status   Status
	ExitCode *int
	Err      error
}

// Classify turns the error from Wait and the state of the run context into a
// Result. Context state wins: a child killed because of a deadline is a
// timeout even though Wait reports a signal.
func Classify(ctx context.Context, waitErr error) Result {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return Result{Status: StatusTimedOut, Err: ctx.Err()}
	case errors.Is(ctx.Err(), context.Canceled):
		return Result{Status: StatusCanceled, Err: ctx.Err()}
	case waitErr == nil:
		code := 0
		return Result{Status: StatusSucceeded, ExitCode: &code}
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		return Result{Status: StatusFailed, ExitCode: &code, Err: waitErr}
	}
	return Result{Status: StatusFailed, Err: waitErr}
}
