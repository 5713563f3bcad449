package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuffer(t *testing.T) {
	b := NewBuffer()
	unlock := b.Lock()
	n, err := b.Write([]byte("cargo:warning=hi\n"))
	unlock()
	require.NoError(t, err)
	require.Equal(t, 17, n)
	require.NoError(t, b.Flush())
	require.Equal(t, "cargo:warning=hi\n", b.String())
	require.Equal(t, []byte("cargo:warning=hi\n"), b.Bytes())

	b.Reset()
	require.Empty(t, b.String())
}

func TestDiscard(t *testing.T) {
	var d Discard
	unlock := d.Lock()
	n, err := d.Write([]byte("abc"))
	unlock()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, d.Flush())
}

func TestStdout_BuffersUntilFlush(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	s := NewFileSink(w)
	require.False(t, s.IsTerminal())

	unlock := s.Lock()
	_, err = s.Write([]byte("cargo:rustc-cfg=loom\n"))
	unlock()
	require.NoError(t, err)
	require.NoError(t, s.Flush())
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "cargo:rustc-cfg=loom\n", string(out))
}

func TestStdout_FlushBrokenPipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, r.Close())

	s := NewFileSink(w)
	unlock := s.Lock()
	_, err = s.Write([]byte("cargo:warning=gone\n"))
	unlock()
	require.NoError(t, err)

	err = s.Flush()
	require.Error(t, err)
	require.True(t, IsBrokenPipe(err))
}

func TestStdout_SharedLockKeepsLinesWhole(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	// Two sinks over the same file share the lock
	a := NewFileSink(w)
	b := NewFileSink(w)
	require.Same(t, a.mu, b.mu)

	const perWriter = 200
	var wg sync.WaitGroup
	for i, s := range []*Stdout{a, b} {
		wg.Add(1)
		go func(id int, s *Stdout) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				unlock := s.Lock()
				// Write the line in pieces to make interleaving visible
				_, _ = s.Write([]byte("cargo:"))
				_, _ = s.Write([]byte(fmt.Sprintf("warning=writer-%d-%d", id, j)))
				_, _ = s.Write([]byte("\n"))
				unlock()
				_ = s.Flush()
			}
		}(i, s)
	}

	done := make(chan []string)
	go func() {
		var lines []string
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		done <- lines
	}()

	wg.Wait()
	require.NoError(t, w.Close())
	lines := <-done

	require.Len(t, lines, 2*perWriter)
	for _, line := range lines {
		require.True(t, strings.HasPrefix(line, "cargo:warning=writer-"), line)
		require.Equal(t, 1, strings.Count(line, "cargo:"), line)
	}
}

func TestIsBrokenPipe(t *testing.T) {
	require.True(t, IsBrokenPipe(syscall.EPIPE))
	require.True(t, IsBrokenPipe(fmt.Errorf("emit: %w", io.ErrClosedPipe)))
	require.False(t, IsBrokenPipe(nil))
	require.False(t, IsBrokenPipe(io.EOF))
}
