// Package openai holds the adapters and parsers for the OpenAI wire shapes.
//
// [ChatVendor] speaks Chat Completions for OpenAI and every compatible
// dialect (Azure, Deepseek, Groq, LM Studio, LocalAI, Mistral, Ollama,
// OpenRouter, Perplexity, Together). Dialect quirks are hotfix passes keyed
// by dialect and model family, see [ChatHotfixes].
//
// [ResponsesVendor] speaks the Responses API. Its request builder and
// parser are exported ([LowerResponses], [NewResponsesParser]) so that
// other vendors sharing the Responses shape can reuse them.
package openai
