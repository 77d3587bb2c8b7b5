package progress

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/smazurov/permutor/internal/ffmpeg"
)

// reader copies frame counts from a progress stream into a Counter until
// the stream ends or it is stopped.
type reader struct {
	conn    io.ReadCloser
	counter *Counter
	done    chan struct{}
	once    sync.Once
	unhook  func() bool
}

func startReader(ctx context.Context, conn io.ReadCloser, counter *Counter) *reader {
	r := &reader{conn: conn, counter: counter, done: make(chan struct{})}
	r.unhook = context.AfterFunc(ctx, r.close)
	go r.run()
	return r
}

func (r *reader) run() {
	defer close(r.done)

	scanner := bufio.NewScanner(r.conn)
	for scanner.Scan() {
		if frame, ok := ffmpeg.ParseFrameLine(scanner.Text()); ok {
			r.counter.Store(frame)
		}
	}
}

func (r *reader) close() {
	r.once.Do(func() { r.conn.Close() })
}

// stop closes the stream and waits for the goroutine to exit.
func (r *reader) stop() {
	r.unhook()
	r.close()
	<-r.done
}
