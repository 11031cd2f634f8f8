// Package parse converts between the raw arguments string of a function
// call, as streamed by the model, and the JSON object some vendors require
// when the call is sent back in a later request. Streamed arguments are
// frequently truncated or slightly malformed, so [ArgsObject] falls back to
// github.com/kaptinlin/jsonrepair before giving up.
package parse
