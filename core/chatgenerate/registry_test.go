package chatgenerate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/aix/providers/ai"
)

func TestDefaultRegistry_ServesEveryDialect(t *testing.T) {
	r := DefaultRegistry()
	want := map[ai.Dialect]string{
		ai.DialectAnthropic:       "anthropic",
		ai.DialectGemini:          "gemini",
		ai.DialectOpenAIResponses: "openai-responses",
		ai.DialectXAI:             "xai",
	}
	for _, d := range ai.OpenAICompatibleDialects {
		want[d] = "openai"
	}

	for dialect, name := range want {
		v, err := r.Lookup(dialect)
		require.NoError(t, err, dialect)
		assert.Equal(t, name, v.Name(), dialect)
	}
	assert.Len(t, r.Dialects(), len(want))
}

func TestRegistry_LookupUnknown(t *testing.T) {
	_, err := NewRegistry().Lookup(ai.DialectOpenAI)
	assert.ErrorContains(t, err, `unsupported dialect "openai"`)
}
