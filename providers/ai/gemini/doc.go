// Package gemini adapts chat-generate requests to the Gemini generateContent
// API and parses its stream and whole responses into particles.
//
// Function calls without an id get a generated one so that tool responses
// can reference them. Tool input schemas are reduced to the OpenAPI subset
// Gemini accepts by the gemini-schema-subset hotfix.
package gemini
