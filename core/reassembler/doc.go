// Package reassembler folds the particle stream of one generation call into
// an ordered list of content fragments plus generator metadata.
//
// A Reassembler has a single writer. Readers get deep copies through
// [Reassembler.Snapshot] and never see a fragment being mutated.
package reassembler
