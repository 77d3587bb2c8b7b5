package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultConnectTimeout bounds the wait for ffmpeg to open its progress
// connection.
const DefaultConnectTimeout = 10 * time.Second

// ErrConnectTimeout means ffmpeg never connected to the progress listener,
// which usually points at a broken binary or environment.
var ErrConnectTimeout = errors.New("ffmpeg did not connect to the progress listener")

// Source yields the single progress stream of a trial.
type Source interface {
	Accept(ctx context.Context) (io.ReadCloser, error)
}

// TCPSource listens on a loopback port and accepts exactly one connection.
type TCPSource struct {
	listener *net.TCPListener
	timeout  time.Duration
}

// Listen binds a free loopback port. A non-positive timeout uses
// DefaultConnectTimeout.
func Listen(timeout time.Duration) (*TCPSource, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, fmt.Errorf("failed to listen for progress: %w", err)
	}
	return &TCPSource{listener: ln, timeout: timeout}, nil
}

// Addr returns the host:port ffmpeg should send progress to.
func (s *TCPSource) Addr() string {
	return s.listener.Addr().String()
}

// Accept waits for the connection and closes the listener afterwards.
func (s *TCPSource) Accept(ctx context.Context) (io.ReadCloser, error) {
	defer s.listener.Close()

	if err := s.listener.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return nil, fmt.Errorf("failed to set accept deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { s.listener.Close() })
	defer stop()

	conn, err := s.listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w after %v", ErrConnectTimeout, s.timeout)
		}
		return nil, fmt.Errorf("failed to accept progress connection: %w", err)
	}
	return conn, nil
}

// Close releases the listener if Accept was never called.
func (s *TCPSource) Close() error {
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
