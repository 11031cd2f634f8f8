// Package xai adapts requests to the xAI Responses endpoint. The wire format
// is OpenAI Responses, so lowering and parsing reuse the openai package; xAI
// takes the system message as a leading system input item and has its own
// hotfixes.
package xai
