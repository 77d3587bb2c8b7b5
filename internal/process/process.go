package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/permutor/internal/logging"
)

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output (ffmpeg, etc.)
type LogParser func(line string) (level, msg string)

// ErrEmptyCommand is returned by Start when no executable is given.
var ErrEmptyCommand = errors.New("empty command")

// Options describes one child process.
type Options struct {
	Name string
	Args []string
	// Env entries are appended to the parent environment.
	Env []string
	Dir string

	// Visible routes the child's output through OutputLogger. Hidden
	// children have their output discarded.
	Visible      bool
	OutputLogger logging.Logger
	LogParser    LogParser

	// GracefulTimeout bounds the wait after SIGINT before SIGKILL.
	GracefulTimeout time.Duration
}

// Process is a started child. It runs in its own process group so that
// signals reach every helper ffmpeg spawns.
type Process struct {
	cmd    *exec.Cmd
	logger logging.Logger
	opts   Options

	done     chan struct{}
	exitCode int
	waitErr  error

	killOnce sync.Once
}

const (
	defaultGracefulTimeout = 5 * time.Second
	killTimeout            = 5 * time.Second
)

// Start launches the child described by opts.
func Start(opts Options, logger logging.Logger) (*Process, error) {
	if opts.Name == "" {
		return nil, ErrEmptyCommand
	}
	if opts.GracefulTimeout <= 0 {
		opts.GracefulTimeout = defaultGracefulTimeout
	}

	cmd := exec.Command(opts.Name, opts.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	p := &Process{
		cmd:    cmd,
		logger: logger,
		opts:   opts,
		done:   make(chan struct{}),
	}

	var streams []io.Reader
	if opts.Visible {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
		}
		streams = append(streams, stdout, stderr)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", opts.Name, err)
	}

	logger.Debug("Process started", "name", opts.Name, "pid", cmd.Process.Pid, "visible", opts.Visible)

	var outputs sync.WaitGroup
	for _, r := range streams {
		outputs.Add(1)
		go func() {
			defer outputs.Done()
			p.streamOutput(r)
		}()
	}

	go func() {
		// pipes must be drained before Wait closes them
		outputs.Wait()
		p.waitErr = cmd.Wait()
		p.exitCode = exitCodeFromError(p.waitErr)
		close(p.done)
	}()

	return p, nil
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the child has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the child exits and returns its exit code. If ctx ends
// first the child is killed and ctx's error is returned.
func (p *Process) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.done:
		return p.exitCode, nil
	case <-ctx.Done():
		return p.Kill(), ctx.Err()
	}
}

// Kill asks the child to stop with SIGINT, waits for the graceful timeout,
// then sends SIGKILL. It is safe to call more than once and after exit.
func (p *Process) Kill() int {
	p.killOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}

		p.signal(syscall.SIGINT)
		select {
		case <-p.done:
			return
		case <-time.After(p.opts.GracefulTimeout):
		}

		p.logger.Warn("Graceful shutdown timeout, forcing kill", "pid", p.Pid(), "timeout", p.opts.GracefulTimeout)
		p.signal(syscall.SIGKILL)
		select {
		case <-p.done:
		case <-time.After(killTimeout):
			p.logger.Error("Process did not exit after kill signal", "pid", p.Pid())
		}
	})

	select {
	case <-p.done:
		return p.exitCode
	default:
		return 137
	}
}

func (p *Process) signal(sig syscall.Signal) {
	// negative pid addresses the whole process group
	if err := syscall.Kill(-p.Pid(), sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		if err := p.cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Warn("Failed to signal process", "signal", sig.String(), "error", err)
		}
	}
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
// A child terminated by a signal reports 128+signal.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

// streamOutput logs each output line at the level the parser extracts.
func (p *Process) streamOutput(reader io.Reader) {
	logger := p.opts.OutputLogger
	if logger == nil {
		logger = p.logger
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()

		level, msg := "info", line
		if p.opts.LogParser != nil {
			level, msg = p.opts.LogParser(line)
		}

		switch level {
		case "fatal", "panic", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace", "verbose":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "error", err)
	}
}
