package main

import (
	"fmt"
	"log/slog"
	"strings"

	"buildinstr/internal/manifest"
	"buildinstr/pkg/cargo"

	"github.com/spf13/cobra"
)

// oneArg builds a command for a directive taking a single argument
func (a *app) oneArg(name, arg, short string, emit func(c *cargo.Cargo, v string) error) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s %s", name, arg),
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return emit(a.cargo, args[0])
		},
	}
}

// twoArgs builds a command for a directive taking two arguments
func (a *app) twoArgs(name, args, short string, emit func(c *cargo.Cargo, k, v string) error) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s %s", name, args),
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return emit(a.cargo, args[0], args[1])
		},
	}
}

func (a *app) addDirectiveCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		a.rerunIfChangedCmd(),
		a.oneArg(cargo.NameRerunIfEnvChanged, "VAR", "Re-run the build script when an environment variable changes",
			func(c *cargo.Cargo, v string) error { return c.RerunIfEnvChanged(v) }),
		a.oneArg(cargo.NameRustcLinkArg, "FLAG", "Pass a linker flag for benchmarks, binaries, cdylib crates, examples and tests",
			func(c *cargo.Cargo, v string) error { return c.RustcLinkArg(v) }),
		a.twoArgs(cargo.NameRustcLinkArgBin, "BIN FLAG", "Pass a linker flag for one binary",
			func(c *cargo.Cargo, bin, flag string) error { return c.RustcLinkArgBin(bin, flag) }),
		a.oneArg(cargo.NameRustcLinkArgBins, "FLAG", "Pass a linker flag for binaries",
			func(c *cargo.Cargo, v string) error { return c.RustcLinkArgBins(v) }),
		a.oneArg(cargo.NameRustcLinkArgTests, "FLAG", "Pass a linker flag for tests",
			func(c *cargo.Cargo, v string) error { return c.RustcLinkArgTests(v) }),
		a.oneArg(cargo.NameRustcLinkArgExamples, "FLAG", "Pass a linker flag for examples",
			func(c *cargo.Cargo, v string) error { return c.RustcLinkArgExamples(v) }),
		a.oneArg(cargo.NameRustcLinkArgBenches, "FLAG", "Pass a linker flag for benchmarks",
			func(c *cargo.Cargo, v string) error { return c.RustcLinkArgBenches(v) }),
		a.oneArg(cargo.NameRustcLinkLib, "LIB", "Link a library, e.g. static=foo or dylib:+verbatim=foo",
			func(c *cargo.Cargo, v string) error { return c.RustcLinkLib(v) }),
		a.rustcLinkSearchCmd(),
		a.oneArg(cargo.NameRustcFlags, "FLAGS", "Pass flags to the compiler",
			func(c *cargo.Cargo, v string) error { return c.RustcFlags(v) }),
		a.rustcCfgCmd(),
		a.twoArgs(cargo.NameRustcEnv, "VAR VALUE", "Set an environment variable for the compiled crate",
			func(c *cargo.Cargo, k, v string) error { return c.RustcEnv(k, v) }),
		a.oneArg(cargo.NameRustcCdylibLinkArg, "FLAG", "Pass a linker flag for cdylib crates",
			func(c *cargo.Cargo, v string) error { return c.RustcCdylibLinkArg(v) }),
		a.warningCmd(),
		a.twoArgs(manifest.NameMetadata, "KEY VALUE", "Write KEY=VALUE metadata for dependents of a links package",
			func(c *cargo.Cargo, k, v string) error { return c.Metadata(k, v) }),
	)
}

func (a *app) rerunIfChangedCmd() *cobra.Command {
	var behavior string
	cmd := &cobra.Command{
		Use:   cargo.NameRerunIfChanged + " PATH",
		Short: "Re-run the build script when a file or directory changes",
		Long: `Re-run the build script when a file or directory changes.

--behavior decides what happens if PATH does not exist:
  always          emit anyway (default)
  only-if-exists  emit nothing and succeed
  must-exist      emit nothing and fail`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("behavior") {
				behavior = a.cfg.Behavior
			}
			b, err := cargo.ParsePathBehavior(behavior)
			if err != nil {
				return err
			}
			slog.Debug("rerun-if-changed", "path", args[0], "behavior", b)
			return a.cargo.RerunIfChanged(args[0], b)
		},
	}
	cmd.Flags().StringVarP(&behavior, "behavior", "b", cargo.Always.String(), "always, only-if-exists or must-exist ($BUILDINSTR_BEHAVIOR)")
	return cmd
}

func (a *app) rustcLinkSearchCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   cargo.NameRustcLinkSearch + " PATH",
		Short: "Add a directory to the library search path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("kind") {
				return a.cargo.RustcLinkSearch(cargo.None(), args[0])
			}
			if kind == "" {
				return fmt.Errorf("--kind must not be empty")
			}
			return a.cargo.RustcLinkSearch(cargo.Some(kind), args[0])
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "search path kind: dependency, crate, native, framework or all")
	return cmd
}

func (a *app) rustcCfgCmd() *cobra.Command {
	return &cobra.Command{
		Use:   cargo.NameRustcCfg + " KEY [VALUE]",
		Short: "Enable a compile-time cfg setting",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return a.cargo.RustcCfg(args[0], cargo.Some(args[1]))
			}
			return a.cargo.RustcCfg(args[0], cargo.None())
		},
	}
}

func (a *app) warningCmd() *cobra.Command {
	return &cobra.Command{
		Use:   cargo.NameWarning + " MESSAGE...",
		Short: "Show a warning after the build script ran",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cargo.Warning(strings.Join(args, " "))
		},
	}
}

func (a *app) applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply MANIFEST",
		Short: "Emit every directive of a YAML manifest, in order",
		Long: `Emit every directive of a YAML manifest, in order. Use - to read stdin.

Example manifest:

  directives:
    - rerun-if-changed: wrapper.h
      behavior: must-exist
    - rustc-link-search: /opt/lib
      kind: native
    - rustc-link-lib: static=foo
    - rustc-cfg: has_foo
    - metadata: include
      value: /opt/include`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("load manifest: %w", err)
			}

			// An explicit --prefix wins over the manifest's
			if m.Prefix != "" && !cmd.Root().PersistentFlags().Changed("prefix") {
				a.usePrefix(m.Prefix)
			}
			behavior, err := a.cfg.PathBehavior()
			if err != nil {
				return err
			}

			slog.Debug("applying manifest", "path", args[0], "directives", len(m.Directives))
			return m.Apply(a.cargo, behavior)
		},
	}
}
