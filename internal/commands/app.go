// Package commands implements the avioctl command structure using Cobra.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/thesyncim/avio"
	"github.com/thesyncim/avio/internal/config"
)

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig ConfigLoader
	stdout     io.Writer
	stderr     io.Writer
	cfgFile    string
	jsonOutput bool
	verbose    bool
	cfg        *config.Config
	bufferSize int
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithIO injects process output streams.
func WithIO(stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig: config.LoadConfig,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "avioctl",
		Short: "avioctl - inspect native I/O error codes and drive stream adapters",
		Long: `avioctl explains libavformat error codes the way avio reports them,
and pipes files through avio stream adapters.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.avio/config.yaml)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(a.newErrorsCommand())
	root.AddCommand(a.newExplainCommand())
	root.AddCommand(a.newCopyCommand())
	root.AddCommand(a.newVersionCommand())

	return root
}

// Execute runs the root command with the given arguments, or the process
// arguments if none are given.
func (a *App) Execute(args ...string) error {
	if args != nil {
		a.root.SetArgs(args)
	}
	err := a.root.Execute()
	if err != nil {
		fmt.Fprintln(a.stderr, "Error:", err)
	}
	return err
}

func (a *App) initConfig() error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := a.loadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// The library path only applies if the environment does not set one.
	if cfg.LibraryPath != "" && os.Getenv("AVIO_FFMPEG_LIB_PATH") == "" {
		if err := os.Setenv("AVIO_FFMPEG_LIB_PATH", cfg.LibraryPath); err != nil {
			return err
		}
	}
	return nil
}

// loggerFactory creates loggers writing to stderr at the configured level.
func (a *App) loggerFactory() logging.LoggerFactory {
	level := logging.LogLevelWarn
	if a.cfg != nil {
		if l, err := a.cfg.Level(); err == nil {
			level = l
		}
	}
	if a.verbose {
		level = logging.LogLevelDebug
	}
	return &logging.DefaultLoggerFactory{
		Writer:          a.stderr,
		DefaultLogLevel: level,
		ScopeLevels:     make(map[string]logging.LogLevel),
	}
}

func (a *App) newScope() *avio.Scope {
	return avio.NewScope(avio.ScopeConfig{LoggerFactory: a.loggerFactory()})
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the process exit code.
func (e *ExitError) ExitCode() int { return e.Code }

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Err: fmt.Errorf(format, args...)}
}

var defaultApp = NewApp()

// Execute runs the default app root command.
func Execute() error {
	return defaultApp.Execute()
}
