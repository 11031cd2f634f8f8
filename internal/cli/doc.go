// Package cli implements the aix command line: loading the endpoint
// configuration, compiling requests to vendor payloads, running generations
// with a throttled terminal renderer, and replaying recorded particle logs.
package cli
