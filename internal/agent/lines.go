package agent

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// LineReader delivers the lines of an input one at a time. A blocked Next
// returns as soon as its context ends, even though the underlying read
// cannot be interrupted.
type LineReader struct {
	lines chan string
	err   error // written before lines is closed
}

// NewLineReader starts reading in. The reading goroutine stops at the end of
// the input or when ctx is done.
func NewLineReader(ctx context.Context, in io.Reader) *LineReader {
	r := &LineReader{lines: make(chan string)}
	go func() {
		defer close(r.lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case r.lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		r.err = scanner.Err()
	}()
	return r
}

// Next returns the next line without a trailing "\r". It returns io.EOF at
// the end of the input and ctx.Err() when ctx ends first.
func (r *LineReader) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-r.lines:
		if !ok {
			if r.err != nil {
				return "", r.err
			}
			return "", io.EOF
		}
		return strings.TrimSuffix(line, "\r"), nil
	}
}
