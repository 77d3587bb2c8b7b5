package trial

import (
	"context"
	"fmt"
	"net"

	"github.com/smazurov/permutor/internal/logging"
	"github.com/smazurov/permutor/internal/process"
	"github.com/smazurov/permutor/internal/progress"
)

// Child is a running ffmpeg.
type Child interface {
	Done() <-chan struct{}
	Wait(ctx context.Context) (int, error)
	Kill() int
}

// Launcher starts ffmpeg children.
type Launcher interface {
	Launch(opts process.Options) (Child, error)
}

// ProcessLauncher starts real processes.
type ProcessLauncher struct {
	Logger logging.Logger
}

func (l ProcessLauncher) Launch(opts process.Options) (Child, error) {
	p, err := process.Start(opts, l.Logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ProgressSource is a progress listener with an address ffmpeg can reach.
type ProgressSource interface {
	progress.Source
	Addr() string
	Close() error
}

// FreeAddr returns a loopback host:port nobody is listening on. The port is
// released before returning so ffmpeg can bind it.
func FreeAddr() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to find a free port: %w", err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		return "", err
	}
	return addr, nil
}
