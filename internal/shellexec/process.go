package shellexec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// Process is a command started in the background.
type Process struct {
	Argv []string

	cmd  *exec.Cmd
	once sync.Once
	done chan struct{}
	err  error
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Wait blocks until the process exits. It may be called more than once.
func (p *Process) Wait() error {
	p.once.Do(func() {
		p.err = p.cmd.Wait()
		close(p.done)
	})
	<-p.done
	return p.err
}

// ProcessList collects background processes for the lifetime of a run. Nothing
// is reaped automatically: callers must Wait before relying on the results of
// background work.
type ProcessList struct {
	mu    sync.Mutex
	procs []*Process
}

func (l *ProcessList) add(cmd *exec.Cmd, argv []string) *Process {
	p := &Process{Argv: argv, cmd: cmd, done: make(chan struct{})}
	l.mu.Lock()
	l.procs = append(l.procs, p)
	l.mu.Unlock()
	return p
}

// List returns the processes started so far.
func (l *ProcessList) List() []*Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Process(nil), l.procs...)
}

// Len returns the number of processes started so far.
func (l *ProcessList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.procs)
}

// Wait joins every background process started so far. Failures are joined
// into the returned error. Cancelling ctx stops waiting but leaves the
// processes running.
func (l *ProcessList) Wait(ctx context.Context) error {
	var errs []error
	for _, p := range l.List() {
		waitErr := make(chan error, 1)
		go func() { waitErr <- p.Wait() }()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-waitErr:
			if err != nil {
				errs = append(errs, fmt.Errorf("background process %d (%s): %w", p.Pid(), p.Argv[0], err))
			}
		}
	}
	return errors.Join(errs...)
}
