// Package manifest reads a YAML list of directives and emits them in order.
//
// Each entry names exactly one directive and its main argument, plus the
// extra fields that directive takes:
//
//	prefix: "cargo:"
//	directives:
//	  - rerun-if-changed: build/config.h
//	    behavior: must-exist
//	  - rustc-link-search: /opt/lib
//	    kind: native
//	  - rustc-cfg: feature
//	    value: fast
//	  - rustc-link-arg-bin: cli
//	    value: -static
//	  - metadata: include
//	    value: /opt/include
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"buildinstr/pkg/cargo"

	"gopkg.in/yaml.v3"
)

// NameMetadata names the bare key=value directive in manifests
const NameMetadata = "metadata"

type field struct {
	name     string
	required bool
	nonEmpty bool
}

var (
	valueRequired = []field{{name: "value", required: true}}
	valueOptional = []field{{name: "value"}}
)

// fields lists the extra fields each directive accepts. A field given as
// null is rejected, whether it is required or not.
var fields = map[string][]field{
	cargo.NameRerunIfChanged:       {{name: "behavior"}},
	cargo.NameRerunIfEnvChanged:    nil,
	cargo.NameRustcLinkArg:         nil,
	cargo.NameRustcLinkArgBin:      valueRequired,
	cargo.NameRustcLinkArgBins:     nil,
	cargo.NameRustcLinkArgTests:    nil,
	cargo.NameRustcLinkArgExamples: nil,
	cargo.NameRustcLinkArgBenches:  nil,
	cargo.NameRustcLinkLib:         nil,
	cargo.NameRustcLinkSearch:      {{name: "kind", nonEmpty: true}},
	cargo.NameRustcFlags:           nil,
	cargo.NameRustcCfg:             valueOptional,
	cargo.NameRustcEnv:             valueRequired,
	cargo.NameRustcCdylibLinkArg:   nil,
	cargo.NameWarning:              nil,
	NameMetadata:                   valueRequired,
}

// Manifest is a parsed directive file
type Manifest struct {
	// Prefix overrides the configured prefix when not empty
	Prefix     string  `yaml:"prefix"`
	Directives []Entry `yaml:"directives"`
}

// Entry is one directive of a manifest
type Entry struct {
	Name  string
	Arg   string
	Extra map[string]string
	Line  int
}

// UnmarshalYAML decodes a single-directive mapping and checks its fields
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]*string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	e.Line = node.Line

	for key := range raw {
		if _, ok := fields[key]; !ok {
			continue
		}
		if e.Name != "" {
			return fmt.Errorf("line %d: entry names both %s and %s", node.Line, e.Name, key)
		}
		e.Name = key
	}
	if e.Name == "" {
		return fmt.Errorf("line %d: entry names no known directive (keys: %s)", node.Line, strings.Join(sortedKeys(raw), ", "))
	}
	if raw[e.Name] == nil {
		return fmt.Errorf("line %d: %s has no value", node.Line, e.Name)
	}
	e.Arg = *raw[e.Name]

	allowed := fields[e.Name]
	e.Extra = make(map[string]string)
	for key, value := range raw {
		if key == e.Name {
			continue
		}
		f, ok := lookupField(allowed, key)
		if !ok {
			return fmt.Errorf("line %d: %s does not take %q", node.Line, e.Name, key)
		}
		if value == nil {
			return fmt.Errorf("line %d: %s: %q is null", node.Line, e.Name, key)
		}
		if f.nonEmpty && *value == "" {
			return fmt.Errorf("line %d: %s: %q is empty", node.Line, e.Name, key)
		}
		e.Extra[key] = *value
	}
	for _, f := range allowed {
		if _, ok := e.Extra[f.name]; f.required && !ok {
			return fmt.Errorf("line %d: %s requires %q", node.Line, e.Name, f.name)
		}
	}
	return nil
}

func lookupField(fs []field, name string) (field, bool) {
	for _, f := range fs {
		if f.name == name {
			return f, true
		}
	}
	return field{}, false
}

func sortedKeys(m map[string]*string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// optional returns the extra field as an optional argument
func (e Entry) optional(name string) cargo.Optional {
	if v, ok := e.Extra[name]; ok {
		return cargo.Some(v)
	}
	return cargo.None()
}

// Load parses a manifest
func Load(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// LoadFile parses the manifest at path; "-" reads stdin
func LoadFile(path string) (*Manifest, error) {
	if path == "-" {
		return Load(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Apply emits every entry in order through c. It stops at the first error.
// rerun-if-changed entries without a behavior use defaultBehavior.
func (m *Manifest) Apply(c *cargo.Cargo, defaultBehavior cargo.PathBehavior) error {
	for i, e := range m.Directives {
		if err := e.apply(c, defaultBehavior); err != nil {
			return fmt.Errorf("directive %d (line %d): %w", i, e.Line, err)
		}
	}
	return nil
}

func (e Entry) apply(c *cargo.Cargo, defaultBehavior cargo.PathBehavior) error {
	switch e.Name {
	case cargo.NameRerunIfChanged:
		behavior := defaultBehavior
		if s, ok := e.Extra["behavior"]; ok {
			var err error
			if behavior, err = cargo.ParsePathBehavior(s); err != nil {
				return err
			}
		}
		return c.RerunIfChanged(e.Arg, behavior)
	case cargo.NameRerunIfEnvChanged:
		return c.RerunIfEnvChanged(e.Arg)
	case cargo.NameRustcLinkArg:
		return c.RustcLinkArg(e.Arg)
	case cargo.NameRustcLinkArgBin:
		return c.RustcLinkArgBin(e.Arg, e.Extra["value"])
	case cargo.NameRustcLinkArgBins:
		return c.RustcLinkArgBins(e.Arg)
	case cargo.NameRustcLinkArgTests:
		return c.RustcLinkArgTests(e.Arg)
	case cargo.NameRustcLinkArgExamples:
		return c.RustcLinkArgExamples(e.Arg)
	case cargo.NameRustcLinkArgBenches:
		return c.RustcLinkArgBenches(e.Arg)
	case cargo.NameRustcLinkLib:
		return c.RustcLinkLib(e.Arg)
	case cargo.NameRustcLinkSearch:
		return c.RustcLinkSearch(e.optional("kind"), e.Arg)
	case cargo.NameRustcFlags:
		return c.RustcFlags(e.Arg)
	case cargo.NameRustcCfg:
		return c.RustcCfg(e.Arg, e.optional("value"))
	case cargo.NameRustcEnv:
		return c.RustcEnv(e.Arg, e.Extra["value"])
	case cargo.NameRustcCdylibLinkArg:
		return c.RustcCdylibLinkArg(e.Arg)
	case cargo.NameWarning:
		return c.Warning(e.Arg)
	case NameMetadata:
		return c.Metadata(e.Arg, e.Extra["value"])
	}
	return fmt.Errorf("unknown directive %q", e.Name)
}
