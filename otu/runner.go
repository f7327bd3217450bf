package otu

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/grailbio/base/log"
	"v.io/x/lib/envvar"
)

// Runner executes rendered commands. Every delegated stage goes through a
// single Runner, so tests can substitute an in-process fake.
type Runner interface {
	// Run executes c to completion, logging the command line and its
	// combined output at debug level. A non-zero exit status is reported as
	// a *CommandError.
	Run(ctx context.Context, c Command) error
	// Output executes c and returns its combined stdout and stderr.
	Output(ctx context.Context, c Command) ([]byte, error)
}

// CommandError reports a failed external command together with what it
// printed.
type CommandError struct {
	Cmd    Command
	Err    error
	Output []byte
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v\n%s", e.Cmd, e.Err, bytes.TrimSpace(e.Output))
}

// ExecRunner runs commands as child processes. Each call blocks until the
// child exits; there is no timeout.
type ExecRunner struct {
	// Vars is the child environment. Nil inherits the current process
	// environment.
	Vars map[string]string
}

func (r ExecRunner) command(ctx context.Context, c Command) (*exec.Cmd, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(c.Path, c.Args...)
	if r.Vars != nil {
		cmd.Env = envvar.MapToSlice(r.Vars)
	}
	return cmd, nil
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Command) error {
	log.Debug.Printf("%s", c)
	out, err := r.Output(ctx, c)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
			log.Debug.Printf("%s", line)
		}
	}
	return err
}

// Output implements Runner.
func (r ExecRunner) Output(ctx context.Context, c Command) ([]byte, error) {
	cmd, err := r.command(ctx, c)
	if err != nil {
		return nil, err
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, &CommandError{Cmd: c, Err: err, Output: out}
	}
	return out, nil
}
