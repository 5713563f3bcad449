package instruction

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"buildinstr/pkg/sink"
)

// ErrMissingArgument is returned when a directive argument its shape needs is nil
var ErrMissingArgument = errors.New("missing argument")

// Prefix pairs the text every line starts with and the sink lines go to.
// The prefix cannot change after construction.
type Prefix struct {
	prefix string
	out    sink.Sink
}

// NewPrefix creates a Prefix. A nil sink selects the process stdout.
func NewPrefix(prefix string, out sink.Sink) *Prefix {
	if out == nil {
		out = sink.NewStdout()
	}
	return &Prefix{prefix: prefix, out: out}
}

// String returns the prefix text
func (p *Prefix) String() string {
	return p.prefix
}

// Sink returns the sink lines are written to
func (p *Prefix) Sink() sink.Sink {
	return p.out
}

// Shape is the layout of a directive body
type Shape int

const (
	// NameValue renders `name=value`
	NameValue Shape = iota
	// NameKeyValue renders `name=key=value`
	NameKeyValue
	// KeyValue renders the bare `key=value`
	KeyValue
	// NameOnly renders `name`
	NameOnly
)

func (s Shape) String() string {
	switch s {
	case NameValue:
		return "name=value"
	case NameKeyValue:
		return "name=key=value"
	case KeyValue:
		return "key=value"
	case NameOnly:
		return "name"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Directive is one instruction to the build tool.
//
// Shape fixes which of Name, Key and Value appear; fields the shape does not
// use are ignored. Key and Value are rendered with fmt.Sprint. A nil Key or
// Value the shape needs, typed nil pointers included, fails rendering.
type Directive struct {
	Shape Shape
	Name  string
	Key   any
	Value any
}

// Render returns the directive body without prefix and line terminator
func (d Directive) Render() (string, error) {
	var b strings.Builder
	switch d.Shape {
	case NameValue:
		if IsNil(d.Value) {
			return "", fmt.Errorf("value: %w", ErrMissingArgument)
		}
		fmt.Fprintf(&b, "%s=%v", d.Name, d.Value)
	case NameKeyValue:
		if IsNil(d.Key) {
			return "", fmt.Errorf("key: %w", ErrMissingArgument)
		}
		if IsNil(d.Value) {
			return "", fmt.Errorf("value: %w", ErrMissingArgument)
		}
		fmt.Fprintf(&b, "%s=%v=%v", d.Name, d.Key, d.Value)
	case KeyValue:
		if IsNil(d.Key) {
			return "", fmt.Errorf("key: %w", ErrMissingArgument)
		}
		if IsNil(d.Value) {
			return "", fmt.Errorf("value: %w", ErrMissingArgument)
		}
		fmt.Fprintf(&b, "%v=%v", d.Key, d.Value)
	case NameOnly:
		b.WriteString(d.Name)
	default:
		return "", fmt.Errorf("unknown directive shape %d", int(d.Shape))
	}
	return b.String(), nil
}

// IsNil reports whether v is nil or a nil pointer, interface, map, slice,
// channel or func
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// Emit writes d as one line. Nothing is written if d does not render.
func (p *Prefix) Emit(d Directive) error {
	name := d.Name
	if d.Shape == KeyValue || name == "" {
		name = "metadata"
	}
	body, err := d.Render()
	if err != nil {
		return fmt.Errorf("emit %s: %w", name, err)
	}
	if err := p.write(body); err != nil {
		return fmt.Errorf("emit %s: %w", name, err)
	}
	return nil
}

// EmitLine writes an already rendered body as one line
func (p *Prefix) EmitLine(body string) error {
	if err := p.write(body); err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	return nil
}

// write locks the sink for one Write of the whole line, then flushes. The
// sink is flushed even when the write fails; the write error wins.
func (p *Prefix) write(body string) error {
	line := make([]byte, 0, len(p.prefix)+len(body)+1)
	line = append(line, p.prefix...)
	line = append(line, body...)
	line = append(line, '\n')

	werr := p.writeLocked(line)
	ferr := p.out.Flush()
	if werr != nil {
		return werr
	}
	return ferr
}

func (p *Prefix) writeLocked(line []byte) error {
	unlock := p.out.Lock()
	defer unlock()
	_, err := p.out.Write(line)
	return err
}
