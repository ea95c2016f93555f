package agent

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLineReader_TrimsCarriageReturnAndEnds(t *testing.T) {
	ctx := context.Background()
	r := NewLineReader(ctx, strings.NewReader("bye\r\nBye!\nlast"))

	for _, want := range []string{"bye", "Bye!", "last"} {
		line, err := r.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, want, line)
	}
	_, err := r.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestLineReader_NextHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewLineReader(context.Background(), pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := r.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)
}
