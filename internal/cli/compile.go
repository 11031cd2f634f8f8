package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/leofalp/aix/internal/utils"
	"github.com/leofalp/aix/providers/observability"
)

type compileFlags struct {
	endpoint   string
	source     requestSource
	stream     bool
	jsonOutput bool
}

// compiled is what compile prints: the request exactly as it would be sent.
type compiled struct {
	Endpoint    string          `json:"endpoint"`
	Vendor      string          `json:"vendor"`
	URL         string          `json:"url"`
	Headers     string          `json:"headers"`
	Streaming   bool            `json:"streaming"`
	SystemSplit bool            `json:"systemSplit,omitempty"`
	Hotfixes    []string        `json:"hotfixes,omitempty"`
	Body        json.RawMessage `json:"body"`
}

func newCompileCommand(a *app) *cobra.Command {
	var f compileFlags
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Lower a request to the vendor payload without sending it",
		Example: `  aix compile --endpoint claude --request req.json --stream
  aix compile --endpoint gpt --prompt "Hello"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.compile(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.endpoint, "endpoint", "e", "", "Endpoint name from the config")
	cmd.Flags().StringVarP(&f.source.path, "request", "r", "", "IR request JSON file, - for stdin")
	cmd.Flags().StringVarP(&f.source.prompt, "prompt", "p", "", "Single user message, used without --request")
	cmd.Flags().StringVar(&f.source.system, "system", "", "System message, used with --prompt")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "Compile the streaming variant")
	cmd.Flags().BoolVar(&f.jsonOutput, "json-output", false, "Ask for a JSON object response")
	return cmd
}

func (a *app) compile(cmd *cobra.Command, f compileFlags) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	ctx := observability.ContextWithObserver(cmd.Context(), a.logger(cfg))

	ep, err := cfg.Endpoint(f.endpoint)
	if err != nil {
		return err
	}
	req, err := f.source.load(a.stdin)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	vendor, err := a.registry.Lookup(ep.Dialect)
	if err != nil {
		return err
	}

	model := ep.ModelParams()
	vreq, err := vendor.ToVendorRequest(ctx, model, req, f.stream, cfg.AdapterOptions(ep, f.jsonOutput))
	if err != nil {
		return err
	}
	endpoint, err := vendor.Endpoint(ep.Access, model, vreq)
	if err != nil {
		return err
	}
	body, err := vreq.JSON()
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(compiled{
		Endpoint:    ep.Name,
		Vendor:      vendor.Name(),
		URL:         endpoint.URL,
		Headers:     utils.RedactHeaders(endpoint.Headers),
		Streaming:   vreq.Streaming,
		SystemSplit: vreq.SystemSplit,
		Hotfixes:    vreq.Hotfixes,
		Body:        body,
	}, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
