package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leofalp/aix/core/reassembler"
	"github.com/leofalp/aix/providers/ai/particle"
	"github.com/leofalp/aix/providers/observability"
)

const maxParticleLine = 16 * 1024 * 1024

type replayFlags struct {
	mergeIssues bool
	render      bool
}

func newReplayCommand(a *app) *cobra.Command {
	var f replayFlags
	cmd := &cobra.Command{
		Use:   "replay PARTICLES.jsonl",
		Short: "Reassemble a recorded particle log and print the result",
		Long: `Reads one wire particle per line (as written by generate --record) and
prints the final accumulator as JSON, or as rendered text with --render.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := a.stdin
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close() //nolint:errcheck // read-only
				in = file
			}
			return a.replay(cmd, in, f)
		},
	}
	cmd.Flags().BoolVar(&f.mergeIssues, "merge-issues", false, "Append issues to the open text instead of separate error fragments")
	cmd.Flags().BoolVar(&f.render, "render", false, "Print rendered text instead of JSON")
	return cmd
}

func (a *app) replay(cmd *cobra.Command, in io.Reader, f replayFlags) error {
	ctx := observability.ContextWithObserver(cmd.Context(), a.logger(nil))
	re, err := Replay(in, reassembler.Options{MergeIssuesIntoText: f.mergeIssues})
	if err != nil {
		return err
	}
	re.Finalize(ctx)
	acc := re.Snapshot()

	if f.render {
		r := newRenderer(a.stdout)
		r.Update(acc, true)
		return nil
	}
	out, err := json.MarshalIndent(acc, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}

// Replay applies every particle line of in to a new Reassembler. Blank lines
// are skipped.
func Replay(in io.Reader, opts reassembler.Options) (*reassembler.Reassembler, error) {
	re := reassembler.New(opts)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxParticleLine)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		p, err := particle.Decode([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		re.Apply(p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read particles: %w", err)
	}
	return re, nil
}
