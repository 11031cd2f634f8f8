package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"dario.cat/mergo"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/stoewer/go-strcase"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/aix/providers/ai"
)

// Config is the aix configuration file.
type Config struct {
	// Defaults fill the unset fields of every endpoint.
	Defaults  Endpoint   `yaml:"defaults"`
	Endpoints []Endpoint `yaml:"endpoints"`

	ThrottleLevel       int           `yaml:"throttle_level"`
	DisabledHotfixes    []string      `yaml:"disabled_hotfixes"`
	MergeIssuesIntoText bool          `yaml:"merge_issues_into_text"`
	PartPolicy          ai.PartPolicy `yaml:"part_policy"`
	Timeout             time.Duration `yaml:"timeout"`

	Log LogConfig `yaml:"log"`
}

// Endpoint is one named access plus the model it talks to.
type Endpoint struct {
	Name      string `yaml:"name"`
	ai.Access `yaml:",inline"`
	Model     string         `yaml:"model"`
	Params    ai.ModelParams `yaml:"params"`
}

// LogConfig selects the slogobs format and level.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// ModelParams returns the params with the model id applied.
func (e Endpoint) ModelParams() ai.ModelParams {
	params := e.Params
	params.ID = e.Model
	return params
}

// LoadDotEnv loads path into the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// LoadConfig reads path, expands ${VAR} references from the environment,
// applies defaults and validates the result.
func LoadConfig(path string, dialects []ai.Dialect) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return ParseConfig(data, dialects)
}

// ParseConfig is LoadConfig on bytes.
func ParseConfig(data []byte, dialects []ai.Dialect) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(dialects); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	defaults := c.Defaults
	defaults.Name = ""
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		if err := mergo.Merge(ep, defaults); err != nil {
			return fmt.Errorf("endpoint %q: apply defaults: %w", ep.Name, err)
		}
		if ep.APIKey == "" {
			ep.APIKey = keyFromEnv(ep.Name, string(ep.Dialect))
		}
	}
	return nil
}

// keyFromEnv looks up <NAME>_API_KEY, then <DIALECT>_API_KEY.
func keyFromEnv(names ...string) string {
	for _, name := range names {
		if name == "" {
			continue
		}
		if v := os.Getenv(strcase.UpperSnakeCase(name) + "_API_KEY"); v != "" {
			return v
		}
	}
	return ""
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate(dialects []ai.Dialect) error {
	var result *multierror.Error
	if len(c.Endpoints) == 0 {
		result = multierror.Append(result, errors.New("at least one endpoint is required"))
	}
	seen := map[string]bool{}
	for i, ep := range c.Endpoints {
		where := fmt.Sprintf("endpoint %d", i)
		if ep.Name == "" {
			result = multierror.Append(result, fmt.Errorf("%s: name is required", where))
		} else {
			where = fmt.Sprintf("endpoint %q", ep.Name)
			key := strcase.KebabCase(ep.Name)
			if seen[key] {
				result = multierror.Append(result, fmt.Errorf("%s: duplicate name", where))
			}
			seen[key] = true
		}
		if ep.Dialect == "" {
			result = multierror.Append(result, fmt.Errorf("%s: dialect is required", where))
		} else if dialects != nil && !slices.Contains(dialects, ep.Dialect) {
			result = multierror.Append(result, fmt.Errorf("%s: unknown dialect %q", where, ep.Dialect))
		}
		if ep.Model == "" {
			result = multierror.Append(result, fmt.Errorf("%s: model is required", where))
		}
	}
	if c.ThrottleLevel < 0 {
		result = multierror.Append(result, fmt.Errorf("throttle_level must not be negative, got %d", c.ThrottleLevel))
	}
	for name, a := range map[string]ai.Approximation{
		"model_images": c.PartPolicy.ModelImages,
		"documents":    c.PartPolicy.Documents,
		"references":   c.PartPolicy.References,
	} {
		switch a {
		case "", ai.Approximate, ai.Reject:
		default:
			result = multierror.Append(result, fmt.Errorf("part_policy.%s: want approximate or reject, got %q", name, a))
		}
	}
	if c.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if result != nil {
		result.ErrorFormat = listErrors
	}
	return result.ErrorOrNil()
}

func listErrors(errs []error) string {
	msg := fmt.Sprintf("invalid config (%d problems):", len(errs))
	for _, err := range errs {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Endpoint finds an endpoint by name. Names compare in kebab case, so
// "MyClaude", "my_claude" and "my-claude" are the same endpoint. An empty
// name selects the only endpoint when there is exactly one.
func (c *Config) Endpoint(name string) (Endpoint, error) {
	if name == "" {
		if len(c.Endpoints) == 1 {
			return c.Endpoints[0], nil
		}
		return Endpoint{}, fmt.Errorf("--endpoint is required with %d endpoints configured", len(c.Endpoints))
	}
	want := strcase.KebabCase(name)
	for _, ep := range c.Endpoints {
		if strcase.KebabCase(ep.Name) == want {
			return ep, nil
		}
	}
	return Endpoint{}, fmt.Errorf("no endpoint named %q", name)
}

// AdapterOptions returns the adapter options for ep.
func (c *Config) AdapterOptions(ep Endpoint, jsonOutput bool) ai.AdapterOptions {
	policy := c.PartPolicy
	if policy == (ai.PartPolicy{}) {
		policy = ai.DefaultPartPolicy
	}
	return ai.AdapterOptions{
		Dialect:          ep.Dialect,
		JSONOutput:       jsonOutput,
		Policy:           policy,
		DisabledHotfixes: slices.Clone(c.DisabledHotfixes),
	}
}
