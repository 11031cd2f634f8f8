package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leofalp/aix/core/chatgenerate"
	"github.com/leofalp/aix/providers/observability/slogobs"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	envFile    string
	logFormat  string
	logLevel   string
}

// app holds what commands share once flags are parsed.
type app struct {
	flags    globalFlags
	registry *chatgenerate.Registry
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
}

// NewRootCommand builds the aix command tree writing to the given streams.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		registry: chatgenerate.DefaultRegistry(),
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}

	root := &cobra.Command{
		Use:           "aix",
		Short:         "Translate chat requests to LLM vendor protocols and reassemble their streams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&a.flags.configPath, "config", "c", envOr("AIX_CONFIG", "aix.yaml"), "Configuration file")
	root.PersistentFlags().StringVar(&a.flags.envFile, "env", ".env", "Environment file, ignored when missing")
	root.PersistentFlags().StringVar(&a.flags.logFormat, "log-format", "", "Log format (console|text|json), defaults to config or AIX_LOG_FORMAT")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "Log level (trace|debug|info|warn|error), defaults to config or AIX_LOG_LEVEL")

	root.AddCommand(newCompileCommand(a), newGenerateCommand(a), newReplayCommand(a), newDialectsCommand(a))
	return root
}

// Execute runs the CLI against the process streams and returns the exit code.
func Execute() int {
	cmd := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("error:", err)
		return 1
	}
	return 0
}

// config loads the environment file and the configuration.
func (a *app) config() (*Config, error) {
	if err := LoadDotEnv(a.flags.envFile); err != nil {
		return nil, err
	}
	return LoadConfig(a.flags.configPath, a.registry.Dialects())
}

func (a *app) logger(cfg *Config) *slogobs.Observer {
	format, level := a.flags.logFormat, a.flags.logLevel
	if format == "" && cfg != nil {
		format = cfg.Log.Format
	}
	if level == "" && cfg != nil {
		level = cfg.Log.Level
	}
	opts := []slogobs.Option{slogobs.WithOutput(a.stderr)}
	if format != "" {
		opts = append(opts, slogobs.WithFormat(slogobs.ParseFormat(format)))
	}
	if level != "" {
		opts = append(opts, slogobs.WithLevel(slogobs.ParseLevel(level)))
	}
	return slogobs.New(opts...)
}

func newDialectsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the supported dialects and the vendor serving each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, d := range a.registry.Dialects() {
				v, err := a.registry.Lookup(d)
				if err != nil {
					return err
				}
				cmd.Printf("%-18s %s\n", d, v.Name())
			}
			return nil
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
