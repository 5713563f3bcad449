package cargo

import (
	"fmt"
	"io/fs"
	"os"

	"buildinstr/pkg/instruction"
	"buildinstr/pkg/sink"
)

// PathBehavior selects how a missing path is handled
type PathBehavior int

const (
	// Always emits the instruction without checking the path
	Always PathBehavior = iota
	// OnlyIfExists emits only if the path exists, otherwise does nothing
	OnlyIfExists
	// MustExist emits if the path exists, otherwise returns a not-found error
	MustExist
)

func (b PathBehavior) String() string {
	switch b {
	case Always:
		return "always"
	case OnlyIfExists:
		return "only-if-exists"
	case MustExist:
		return "must-exist"
	}
	return fmt.Sprintf("PathBehavior(%d)", int(b))
}

// ParsePathBehavior parses the String form of a PathBehavior
func ParsePathBehavior(s string) (PathBehavior, error) {
	switch s {
	case "always", "":
		return Always, nil
	case "only-if-exists":
		return OnlyIfExists, nil
	case "must-exist":
		return MustExist, nil
	}
	return Always, fmt.Errorf("unknown path behavior %q (want always, only-if-exists or must-exist)", s)
}

// Cargo writes instructions like Raw, with checks where they help
type Cargo struct {
	raw *Raw
}

// New writes to stdout with the `cargo:` prefix
func New() *Cargo {
	return FromRaw(DefaultRaw())
}

// FromRaw wraps r
func FromRaw(r *Raw) *Cargo {
	return &Cargo{raw: r}
}

// NewCaptured returns a Cargo writing into memory, for checking output.
// Read the result with Captured.
func NewCaptured() *Cargo {
	return FromRaw(NewRaw(instruction.NewPrefix(DefaultPrefix, sink.NewBuffer())))
}

// Captured returns what c wrote so far, or "" if c does not write to memory
func Captured(c *Cargo) string {
	if buf, ok := c.raw.Prefix().Sink().(*sink.Buffer); ok {
		return buf.String()
	}
	return ""
}

// Raw returns the underlying Raw
func (c *Cargo) Raw() *Raw {
	return c.raw
}

// RerunIfChanged re-runs the build script when path changes. Whether the path
// is checked first depends on behavior. A path that cannot be stat'ed counts
// as missing.
func (c *Cargo) RerunIfChanged(path string, behavior PathBehavior) error {
	if behavior == Always {
		return c.raw.RerunIfChanged(path)
	}
	if pathExists(path) {
		return c.raw.RerunIfChanged(path)
	}
	if behavior == MustExist {
		return &fs.PathError{Op: NameRerunIfChanged, Path: path, Err: fs.ErrNotExist}
	}
	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RerunIfEnvChanged re-runs the build script when the environment variable changes
func (c *Cargo) RerunIfEnvChanged(name any) error {
	return c.raw.RerunIfEnvChanged(name)
}

// RustcLinkArg passes flag to the linker for benchmarks, binaries, cdylib
// crates, examples and tests
func (c *Cargo) RustcLinkArg(flag any) error {
	return c.raw.RustcLinkArg(flag)
}

// RustcLinkArgBin passes flag to the linker for the binary bin
func (c *Cargo) RustcLinkArgBin(bin, flag any) error {
	return c.raw.RustcLinkArgBin(bin, flag)
}

// RustcLinkArgBins passes flag to the linker for binaries
func (c *Cargo) RustcLinkArgBins(flag any) error {
	return c.raw.RustcLinkArgBins(flag)
}

// RustcLinkArgTests passes flag to the linker for tests
func (c *Cargo) RustcLinkArgTests(flag any) error {
	return c.raw.RustcLinkArgTests(flag)
}

// RustcLinkArgExamples passes flag to the linker for examples
func (c *Cargo) RustcLinkArgExamples(flag any) error {
	return c.raw.RustcLinkArgExamples(flag)
}

// RustcLinkArgBenches passes flag to the linker for benchmarks
func (c *Cargo) RustcLinkArgBenches(flag any) error {
	return c.raw.RustcLinkArgBenches(flag)
}

// RustcLinkLib links a library
func (c *Cargo) RustcLinkLib(lib any) error {
	return c.raw.RustcLinkLib(lib)
}

// RustcLinkSearch adds path to the library search path. An absent kind
// writes the path alone.
func (c *Cargo) RustcLinkSearch(kind Optional, path any) error {
	return c.raw.RustcLinkSearch(kind, path)
}

// RustcFlags passes flags to the compiler
func (c *Cargo) RustcFlags(flags any) error {
	return c.raw.RustcFlags(flags)
}

// RustcCfg enables a cfg setting. An absent value writes the key alone.
func (c *Cargo) RustcCfg(key any, value Optional) error {
	return c.raw.RustcCfg(key, value)
}

// RustcEnv sets an environment variable for the compiled crate
func (c *Cargo) RustcEnv(name, value any) error {
	return c.raw.RustcEnv(name, value)
}

// RustcCdylibLinkArg passes flag to the linker for cdylib crates
func (c *Cargo) RustcCdylibLinkArg(flag any) error {
	return c.raw.RustcCdylibLinkArg(flag)
}

// Warning shows message on the terminal after the build script ran
func (c *Cargo) Warning(message any) error {
	return c.raw.Warning(message)
}

// Metadata writes a bare `key=value` line for dependents of a `links` package
func (c *Cargo) Metadata(key, value any) error {
	return c.raw.Metadata(key, value)
}
