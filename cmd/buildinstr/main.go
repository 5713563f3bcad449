package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"buildinstr/internal/config"
	"buildinstr/internal/host"
	"buildinstr/pkg/cargo"
	"buildinstr/pkg/instruction"
	"buildinstr/pkg/sink"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by all subcommands of one invocation
type app struct {
	cfgFile string
	dryRun  bool
	v       *viper.Viper
	cfg     config.Config
	out     sink.Sink
	cargo   *cargo.Cargo
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "buildinstr",
		Short: "Emit build script directives",
		Long: `buildinstr prints Cargo build script directives on stdout, one per line.

Run it from a build script (or anything Cargo runs as one) and Cargo reads the
lines, for example:

  buildinstr rerun-if-changed --behavior must-exist wrapper.h
  buildinstr rustc-link-search --kind native /opt/lib
  buildinstr apply directives.yaml`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", fmt.Sprintf("config file (default: %s if present)", config.DefaultFile))
	rootCmd.PersistentFlags().String("prefix", cargo.DefaultPrefix, "prefix written before every directive ($BUILDINSTR_PREFIX)")
	rootCmd.PersistentFlags().BoolVar(&a.dryRun, "dry-run", false, "check arguments and paths but write nothing")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug information to stderr ($BUILDINSTR_VERBOSE)")

	cobra.CheckErr(a.v.BindPFlag("prefix", rootCmd.PersistentFlags().Lookup("prefix")))
	cobra.CheckErr(a.v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")))

	a.addDirectiveCommands(rootCmd)
	rootCmd.AddCommand(a.applyCmd())
	return rootCmd
}

// setup loads the configuration, configures logging and opens the output
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	a.out = sinkFor(cmd.OutOrStdout())
	if a.dryRun {
		a.out = sink.Discard{}
	}
	a.usePrefix(cfg.Prefix)

	self := host.Self()
	slog.Debug("invocation", "pid", self.PID, "parent", self.ParentName, "parent_cmd", self.ParentCmd, "prefix", cfg.Prefix)

	if stdout, ok := a.out.(*sink.Stdout); ok && stdout.IsTerminal() && !host.UnderCargo() {
		slog.Warn("stdout is a terminal, directives only take effect when a build script prints them to Cargo")
	}
	return nil
}

// usePrefix replaces the output context, keeping the sink
func (a *app) usePrefix(prefix string) {
	a.cargo = cargo.FromRaw(cargo.NewRaw(instruction.NewPrefix(prefix, a.out)))
}

// sinkFor returns the sink for the command's output writer
func sinkFor(w io.Writer) sink.Sink {
	switch w := w.(type) {
	case sink.Sink:
		return w
	case *os.File:
		return sink.NewFileSink(w)
	}
	return sink.NewStdout()
}

func main() {
	// Get EPIPE from writes to a closed stdout instead of dying from SIGPIPE
	signal.Notify(make(chan os.Signal, 1), syscall.SIGPIPE)

	if err := newRootCmd().Execute(); err != nil {
		if sink.IsBrokenPipe(err) {
			fmt.Fprintln(os.Stderr, "buildinstr: stdout closed before all directives were written:", err)
		} else {
			fmt.Fprintln(os.Stderr, "buildinstr:", err)
		}
		os.Exit(1)
	}
}
