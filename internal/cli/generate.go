package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leofalp/aix/core/chatgenerate"
	"github.com/leofalp/aix/core/reassembler"
	"github.com/leofalp/aix/providers/ai/particle"
	"github.com/leofalp/aix/providers/observability"
)

type generateFlags struct {
	endpoint      string
	source        requestSource
	noStream      bool
	jsonOutput    bool
	dumpRequest   bool
	printJSON     bool
	record        string
	throttleLevel int
	trace         bool
	metrics       bool
}

func newGenerateCommand(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a chat generation and stream the reassembled output",
		Example: `  aix generate --endpoint claude --prompt "What is the weather in NYC?"
  aix generate -e gpt -r req.json --record out.jsonl && aix replay out.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.generate(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.endpoint, "endpoint", "e", "", "Endpoint name from the config")
	cmd.Flags().StringVarP(&f.source.path, "request", "r", "", "IR request JSON file, - for stdin")
	cmd.Flags().StringVarP(&f.source.prompt, "prompt", "p", "", "Single user message, used without --request")
	cmd.Flags().StringVar(&f.source.system, "system", "", "System message, used with --prompt")
	cmd.Flags().BoolVar(&f.noStream, "no-stream", false, "Use the non-streaming vendor call")
	cmd.Flags().BoolVar(&f.jsonOutput, "json-output", false, "Ask for a JSON object response")
	cmd.Flags().BoolVar(&f.dumpRequest, "dump-request", false, "Print the dispatched request (credentials masked) to stderr")
	cmd.Flags().BoolVar(&f.printJSON, "json", false, "Print the final accumulator as JSON instead of rendering text")
	cmd.Flags().StringVar(&f.record, "record", "", "Write every particle to this JSONL file")
	cmd.Flags().IntVar(&f.throttleLevel, "throttle", -1, "Throttle level, -1 uses the config")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "Print OpenTelemetry spans to stderr")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "Print Prometheus metrics to stderr")
	return cmd
}

func (a *app) generate(cmd *cobra.Command, f generateFlags) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	ep, err := cfg.Endpoint(f.endpoint)
	if err != nil {
		return err
	}
	req, err := f.source.load(a.stdin)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	observer, tel := observe(a.logger(cfg), f.trace, f.metrics)
	ctx = observability.ContextWithObserver(ctx, observer)

	opts := chatgenerate.Options{
		Registry:            a.registry,
		Streaming:           !f.noStream,
		Adapter:             cfg.AdapterOptions(ep, f.jsonOutput),
		ThrottleLevel:       cfg.ThrottleLevel,
		MergeIssuesIntoText: cfg.MergeIssuesIntoText,
		Timeout:             cfg.Timeout,
	}
	if f.throttleLevel >= 0 {
		opts.ThrottleLevel = f.throttleLevel
	}
	if f.dumpRequest {
		opts.Debug = chatgenerate.DebugFunc(func(_ context.Context, r chatgenerate.DispatchRecord) {
			fmt.Fprintf(a.stderr, "POST %s\n%s\n%s\n\n", r.URL, r.Headers, r.Body)
		})
	}
	if f.record != "" {
		file, err := os.Create(f.record)
		if err != nil {
			return err
		}
		defer file.Close() //nolint:errcheck // flushed by the encoder writes
		opts.Tap = recordTo(ctx, file, observer)
	}

	var onUpdate chatgenerate.UpdateFunc
	if !f.printJSON {
		onUpdate = newRenderer(a.stdout).Update
	}
	acc, genErr := chatgenerate.Execute(ctx, ep.Access, ep.ModelParams(), req, opts, onUpdate)

	if f.printJSON {
		out, err := json.MarshalIndent(acc, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
	}
	if err := tel.report(context.WithoutCancel(ctx), a.stderr); err != nil {
		return err
	}
	if genErr != nil {
		return genErr
	}
	if failed(acc) {
		return fmt.Errorf("generation ended with %s", acc.Generator.EndReason)
	}
	return nil
}

// recordTo returns a particle tap writing one wire particle per line.
func recordTo(ctx context.Context, w io.Writer, logger observability.Logger) func(particle.Particle) {
	return func(p particle.Particle) {
		data, err := particle.Encode(p)
		if err == nil {
			_, err = w.Write(append(data, '\n'))
		}
		if err != nil {
			logger.Warn(ctx, "particle record failed", observability.Error(err))
		}
	}
}

func failed(acc reassembler.Accumulator) bool {
	switch acc.Generator.EndReason {
	case particle.EndIssueDialect, particle.EndIssueRPC:
		return true
	}
	return false
}
