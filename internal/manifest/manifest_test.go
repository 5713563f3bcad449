package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"buildinstr/pkg/cargo"

	"github.com/stretchr/testify/require"
)

func TestLoadAndApply(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "config.h")
	require.NoError(t, os.WriteFile(header, nil, 0o644))

	input := `prefix: "cargo:"
directives:
  - rerun-if-changed: ` + header + `
    behavior: must-exist
  - rerun-if-changed: ` + filepath.Join(dir, "gone.h") + `
    behavior: only-if-exists
  - rerun-if-env-changed: CC
  - rustc-link-search: /opt/lib
    kind: native
  - rustc-link-search: /usr/lib
  - rustc-link-lib: static=z
  - rustc-link-arg: -Wl,--as-needed
  - rustc-link-arg-bin: cli
    value: -static
  - rustc-link-arg-bins: -s
  - rustc-link-arg-tests: -t
  - rustc-link-arg-examples: -e
  - rustc-link-arg-benches: -b
  - rustc-cdylib-link-arg: -pie
  - rustc-flags: -l dylib=foo
  - rustc-cfg: has_foo
  - rustc-cfg: feature
    value: fast
  - rustc-env: BUILD_NUMBER
    value: 42
  - warning: deprecated option
  - metadata: include
    value: /opt/include
`
	m, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, "cargo:", m.Prefix)
	require.Len(t, m.Directives, 19)

	c := cargo.NewCaptured()
	require.NoError(t, m.Apply(c, cargo.Always))

	expected := "" +
		"cargo:rerun-if-changed=" + header + "\n" +
		"cargo:rerun-if-env-changed=CC\n" +
		"cargo:rustc-link-search=native=/opt/lib\n" +
		"cargo:rustc-link-search=/usr/lib\n" +
		"cargo:rustc-link-lib=static=z\n" +
		"cargo:rustc-link-arg=-Wl,--as-needed\n" +
		"cargo:rustc-link-arg-bin=cli=-static\n" +
		"cargo:rustc-link-arg-bins=-s\n" +
		"cargo:rustc-link-arg-tests=-t\n" +
		"cargo:rustc-link-arg-examples=-e\n" +
		"cargo:rustc-link-arg-benches=-b\n" +
		"cargo:rustc-cdylib-link-arg=-pie\n" +
		"cargo:rustc-flags=-l dylib=foo\n" +
		"cargo:rustc-cfg=has_foo\n" +
		"cargo:rustc-cfg=feature=fast\n" +
		"cargo:rustc-env=BUILD_NUMBER=42\n" +
		"cargo:warning=deprecated option\n" +
		"cargo:include=/opt/include\n"
	require.Equal(t, expected, cargo.Captured(c))
}

func TestApply_DefaultBehavior(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	m, err := Load(strings.NewReader("directives:\n  - rerun-if-changed: " + missing + "\n"))
	require.NoError(t, err)

	c := cargo.NewCaptured()
	require.NoError(t, m.Apply(c, cargo.OnlyIfExists))
	require.Empty(t, cargo.Captured(c))

	err = m.Apply(c, cargo.MustExist)
	require.True(t, errors.Is(err, fs.ErrNotExist))
	require.Contains(t, err.Error(), "directive 0 (line 2)")
}

func TestApply_StopsAtFirstError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	input := "directives:\n" +
		"  - warning: first\n" +
		"  - rerun-if-changed: " + missing + "\n" +
		"    behavior: must-exist\n" +
		"  - warning: never\n"
	m, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	c := cargo.NewCaptured()
	err = m.Apply(c, cargo.Always)
	require.Error(t, err)
	require.Contains(t, err.Error(), "directive 1")
	require.Equal(t, "cargo:warning=first\n", cargo.Captured(c))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown directive", "directives:\n  - rustc-link-everything: yes\n", "no known directive"},
		{"two directives", "directives:\n  - warning: a\n    rustc-flags: b\n", "names both"},
		{"unexpected field", "directives:\n  - warning: a\n    kind: b\n", `does not take "kind"`},
		{"missing value", "directives:\n  - rustc-env: EDITOR\n", `requires "value"`},
		{"unknown top-level key", "prefx: x\n", "prefx"},
		{"not a mapping", "directives:\n  - just-a-string\n", "line 2"},
		{"empty optional value", "directives:\n  - rustc-cfg: feature\n    value:\n", `line 2: rustc-cfg: "value" is null`},
		{"tilde required value", "directives:\n  - warning: a\n  - rustc-env: X\n    value: ~\n", `line 3: rustc-env: "value" is null`},
		{"null required value", "directives:\n  - metadata: include\n    value: null\n", `"value" is null`},
		{"null kind", "directives:\n  - rustc-link-search: /opt\n    kind:\n", `line 2: rustc-link-search: "kind" is null`},
		{"empty kind", "directives:\n  - rustc-link-search: /opt\n    kind: \"\"\n", `"kind" is empty`},
		{"null behavior", "directives:\n  - rerun-if-changed: a.h\n    behavior:\n", `"behavior" is null`},
		{"null argument", "directives:\n  - rustc-link-lib:\n", "line 2: rustc-link-lib has no value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestApply_EmptyStringsKept(t *testing.T) {
	m, err := Load(strings.NewReader("directives:\n  - rustc-env: EMPTY\n    value: \"\"\n  - rustc-cfg: feature\n    value: \"\"\n"))
	require.NoError(t, err)

	c := cargo.NewCaptured()
	require.NoError(t, m.Apply(c, cargo.Always))
	require.Equal(t, "cargo:rustc-env=EMPTY=\ncargo:rustc-cfg=feature=\n", cargo.Captured(c))
}

func TestApply_InvalidBehavior(t *testing.T) {
	m, err := Load(strings.NewReader("directives:\n  - rerun-if-changed: x\n    behavior: sometimes\n"))
	require.NoError(t, err)
	require.ErrorContains(t, m.Apply(cargo.NewCaptured(), cargo.Always), "unknown path behavior")
}

func TestLoad_Empty(t *testing.T) {
	m, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, m.Directives)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directives.yaml")
	require.NoError(t, os.WriteFile(path, []byte("directives:\n  - rustc-cfg: loom\n"), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, m.Directives, 1)
	require.Equal(t, cargo.NameRustcCfg, m.Directives[0].Name)
	require.Equal(t, "loom", m.Directives[0].Arg)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.True(t, errors.Is(err, fs.ErrNotExist))
}
