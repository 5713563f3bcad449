// Package cargo emits Cargo build script instructions.
//
// [Raw] prints each instruction exactly as given. [Cargo] wraps it and adds
// path checks for rerun-if-changed.
//
// See https://doc.rust-lang.org/cargo/reference/build-scripts.html#outputs-of-the-build-script
package cargo

import (
	"buildinstr/pkg/instruction"
)

// DefaultPrefix starts every line Cargo reads as an instruction
const DefaultPrefix = "cargo:"

// Instruction names, verbatim
const (
	NameRerunIfChanged       = "rerun-if-changed"
	NameRerunIfEnvChanged    = "rerun-if-env-changed"
	NameRustcLinkArg         = "rustc-link-arg"
	NameRustcLinkArgBin      = "rustc-link-arg-bin"
	NameRustcLinkArgBins     = "rustc-link-arg-bins"
	NameRustcLinkArgTests    = "rustc-link-arg-tests"
	NameRustcLinkArgExamples = "rustc-link-arg-examples"
	NameRustcLinkArgBenches  = "rustc-link-arg-benches"
	NameRustcLinkLib         = "rustc-link-lib"
	NameRustcLinkSearch      = "rustc-link-search"
	NameRustcFlags           = "rustc-flags"
	NameRustcCfg             = "rustc-cfg"
	NameRustcEnv             = "rustc-env"
	NameRustcCdylibLinkArg   = "rustc-cdylib-link-arg"
	NameWarning              = "warning"
)

// Optional is an argument that may be absent. The zero value is absent.
type Optional struct {
	value any
	set   bool
}

// Some returns a present Optional holding v
func Some(v any) Optional {
	return Optional{value: v, set: true}
}

// None returns an absent Optional
func None() Optional {
	return Optional{}
}

// Get returns the value and whether it is present. A nil value, typed nil
// pointers included, counts as absent.
func (o Optional) Get() (any, bool) {
	if !o.set || instruction.IsNil(o.value) {
		return nil, false
	}
	return o.value, true
}

// Raw writes instructions without any checks. Arguments are rendered with
// fmt.Sprint. Every method has a fixed line layout: a nil argument fails with
// [instruction.ErrMissingArgument] and writes nothing, and the optional parts
// of rustc-link-search and rustc-cfg are passed as an [Optional].
type Raw struct {
	prefix *instruction.Prefix
}

// NewRaw returns a Raw writing through p
func NewRaw(p *instruction.Prefix) *Raw {
	return &Raw{prefix: p}
}

// DefaultRaw writes to stdout with the `cargo:` prefix
func DefaultRaw() *Raw {
	return NewRaw(instruction.NewPrefix(DefaultPrefix, nil))
}

// Prefix returns the prefix Raw writes through
func (r *Raw) Prefix() *instruction.Prefix {
	return r.prefix
}

func (r *Raw) emit(name string, value any) error {
	return r.prefix.Emit(instruction.Directive{Shape: instruction.NameValue, Name: name, Value: value})
}

func (r *Raw) emitKeyed(name string, key, value any) error {
	return r.prefix.Emit(instruction.Directive{Shape: instruction.NameKeyValue, Name: name, Key: key, Value: value})
}

// RerunIfChanged re-runs the build script when path changes
func (r *Raw) RerunIfChanged(path any) error {
	return r.emit(NameRerunIfChanged, path)
}

// RerunIfEnvChanged re-runs the build script when the environment variable changes
func (r *Raw) RerunIfEnvChanged(name any) error {
	return r.emit(NameRerunIfEnvChanged, name)
}

// RustcLinkArg passes flag to the linker for benchmarks, binaries, cdylib
// crates, examples and tests
func (r *Raw) RustcLinkArg(flag any) error {
	return r.emit(NameRustcLinkArg, flag)
}

// RustcLinkArgBin passes flag to the linker for the binary bin
func (r *Raw) RustcLinkArgBin(bin, flag any) error {
	return r.emitKeyed(NameRustcLinkArgBin, bin, flag)
}

// RustcLinkArgBins passes flag to the linker for binaries
func (r *Raw) RustcLinkArgBins(flag any) error {
	return r.emit(NameRustcLinkArgBins, flag)
}

// RustcLinkArgTests passes flag to the linker for tests
func (r *Raw) RustcLinkArgTests(flag any) error {
	return r.emit(NameRustcLinkArgTests, flag)
}

// RustcLinkArgExamples passes flag to the linker for examples
func (r *Raw) RustcLinkArgExamples(flag any) error {
	return r.emit(NameRustcLinkArgExamples, flag)
}

// RustcLinkArgBenches passes flag to the linker for benchmarks
func (r *Raw) RustcLinkArgBenches(flag any) error {
	return r.emit(NameRustcLinkArgBenches, flag)
}

// RustcLinkLib links a library. lib is written unchanged, including any
// `KIND[:MODIFIERS]=NAME[:RENAME]` syntax it carries.
func (r *Raw) RustcLinkLib(lib any) error {
	return r.emit(NameRustcLinkLib, lib)
}

// RustcLinkSearch adds path to the library search path. An absent kind
// writes the path alone.
func (r *Raw) RustcLinkSearch(kind Optional, path any) error {
	if k, ok := kind.Get(); ok {
		return r.emitKeyed(NameRustcLinkSearch, k, path)
	}
	return r.emit(NameRustcLinkSearch, path)
}

// RustcFlags passes flags to the compiler
func (r *Raw) RustcFlags(flags any) error {
	return r.emit(NameRustcFlags, flags)
}

// RustcCfg enables a cfg setting. An absent value writes the key alone.
func (r *Raw) RustcCfg(key any, value Optional) error {
	if v, ok := value.Get(); ok {
		return r.emitKeyed(NameRustcCfg, key, v)
	}
	return r.emit(NameRustcCfg, key)
}

// RustcEnv sets an environment variable for the compiled crate
func (r *Raw) RustcEnv(name, value any) error {
	return r.emitKeyed(NameRustcEnv, name, value)
}

// RustcCdylibLinkArg passes flag to the linker for cdylib crates
func (r *Raw) RustcCdylibLinkArg(flag any) error {
	return r.emit(NameRustcCdylibLinkArg, flag)
}

// Warning shows message on the terminal after the build script ran
func (r *Raw) Warning(message any) error {
	return r.emit(NameWarning, message)
}

// Metadata writes a bare `key=value` line, read by dependents of a package
// with the `links` manifest key
func (r *Raw) Metadata(key, value any) error {
	return r.prefix.Emit(instruction.Directive{Shape: instruction.KeyValue, Key: key, Value: value})
}
