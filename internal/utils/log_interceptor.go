// Package utils holds small helpers shared by the vaultsync packages.
package utils

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"time"
)

// LogInterceptor prefixes every complete line written through it with a
// sequence number and a timestamp. Partial lines are held until their newline
// arrives or Close is called.
type LogInterceptor struct {
	target  io.Writer
	now     func() time.Time
	mu      sync.Mutex
	seq     uint64
	pending bytes.Buffer
}

func NewLogInterceptor(target io.Writer) *LogInterceptor {
	return &LogInterceptor{
		target: target,
		now:    time.Now,
	}
}

func (i *LogInterceptor) writeLine(line []byte) error {
	i.seq++
	prefix := slog.Uint64("line", i.seq).String() + " " +
		slog.String("time", i.now().Format(time.RFC3339)).String() + " "

	if _, err := io.WriteString(i.target, prefix); err != nil {
		return err
	}
	_, err := i.target.Write(append(bytes.TrimSuffix(line, []byte("\r")), '\n'))
	return err
}

// Write reports len(p) on success, as the caller's bytes were all consumed.
func (i *LogInterceptor) Write(p []byte) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.pending.Write(p)
	for {
		idx := bytes.IndexByte(i.pending.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := bytes.Clone(i.pending.Next(idx + 1)[:idx])
		if err := i.writeLine(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close flushes a trailing partial line and closes the target if it is a Closer.
func (i *LogInterceptor) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.pending.Len() > 0 {
		line := bytes.Clone(i.pending.Bytes())
		i.pending.Reset()
		if err := i.writeLine(line); err != nil {
			return err
		}
	}
	if c, ok := i.target.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
