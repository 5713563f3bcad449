// Package sink defines where emitted build directives go: the live process
// stdout or an in-memory buffer used to check output in tests.
package sink

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"golang.org/x/term"
)

// Sink is the destination of directive lines.
//
// Lock acquires exclusive write access and returns the function releasing
// it. Callers write a whole line between Lock and unlock, then call Flush.
type Sink interface {
	io.Writer
	Lock() (unlock func())
	Flush() error
}

var (
	_ Sink = (*Stdout)(nil)
	_ Sink = (*Buffer)(nil)
	_ Sink = Discard{}
)

// fileLocks holds one mutex per output file, so every Stdout sink over the
// same file serializes with the others.
var fileLocks sync.Map // map[*os.File]*sync.Mutex

func lockFor(f *os.File) *sync.Mutex {
	mu, _ := fileLocks.LoadOrStore(f, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Stdout is the live sink. Writes are buffered until Flush.
type Stdout struct {
	file *os.File
	mu   *sync.Mutex
	w    *bufio.Writer
}

// NewStdout returns a sink writing to os.Stdout
func NewStdout() *Stdout {
	return NewFileSink(os.Stdout)
}

// NewFileSink returns a live sink over f
func NewFileSink(f *os.File) *Stdout {
	return &Stdout{
		file: f,
		mu:   lockFor(f),
		w:    bufio.NewWriter(f),
	}
}

// Write buffers p. Call it while holding the lock.
func (s *Stdout) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Lock acquires the file's exclusive-write scope
func (s *Stdout) Lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

// Flush writes buffered bytes to the file. It takes the lock itself, so it
// must be called after the unlock returned by Lock.
func (s *Stdout) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

// IsTerminal reports whether the underlying file is a terminal
func (s *Stdout) IsTerminal() bool {
	return term.IsTerminal(int(s.file.Fd()))
}

// Buffer is the captured sink. Locking and flushing are no-ops.
type Buffer struct {
	buf bytes.Buffer
}

// NewBuffer returns an empty captured sink
func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

func (b *Buffer) Lock() func() {
	return func() {}
}

func (b *Buffer) Flush() error {
	return nil
}

// String returns everything written so far
func (b *Buffer) String() string {
	return b.buf.String()
}

// Bytes returns everything written so far. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf.Bytes()
}

// Reset drops the captured content
func (b *Buffer) Reset() {
	b.buf.Reset()
}

// Discard accepts and drops every write
type Discard struct{}

func (Discard) Write(p []byte) (int, error) { return len(p), nil }
func (Discard) Lock() func() { return func() {} }
func (Discard) Flush() error { return nil }

// IsBrokenPipe reports whether err is a broken or closed pipe, which happens
// when the reading side of stdout went away.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}
