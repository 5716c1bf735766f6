package searchrev

import (
	"context"
	"io"
	"os/exec"

	"github.com/pkg/errors"
)

// Job is one pipeline execution handed to a Launcher.
type Job struct {
	// Program is the reference to the pipeline binary, a local path or an
	// object store reference depending on the Launcher.
	Program string
	// Input references the hit feed.
	Input string
	// Output is the prefix the report is written under.
	Output string
	// Args are extra arguments for the run command.
	Args []string
}

// RunArgs is the command line of the run subcommand for j.
func (j Job) RunArgs() []string {
	args := []string{"run", "--input", j.Input, "--output", j.Output}
	return append(args, j.Args...)
}

// Launcher executes a Job once, to completion. A failed run is reported as an
// error and never retried.
type Launcher interface {
	Launch(ctx context.Context, job Job) error
}

// LocalLauncher runs the job as a child process on this machine.
type LocalLauncher struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Launch implements Launcher.
func (l *LocalLauncher) Launch(ctx context.Context, job Job) error {
	cmd := exec.CommandContext(ctx, job.Program, job.RunArgs()...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running %s", job.Program)
	}
	return nil
}
