package runner

import (
	"context"
	"fmt"
	"strings"

	execute "github.com/alexellis/go-execute/v2"
)

// Result captures one external command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution so engine adapters stay testable.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Exec runs commands via go-execute. A non-zero exit code is returned as an
// error alongside the captured output.
type Exec struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (Exec) Run(ctx context.Context, name string, args ...string) (Result, error) {
	task := execute.ExecTask{
		Command: name,
		Args:    args,
	}

	res, err := task.Execute(ctx)
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%s: %w", name, err)
	}

	out := Result{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(res.Stdout)
		}
		return out, fmt.Errorf("%s exited with code %d: %s", name, res.ExitCode, detail)
	}
	return out, nil
}
