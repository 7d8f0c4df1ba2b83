// Package msa abstracts an external multiple-sequence-alignment
// engine.  An Aligner takes the sequences of one read family and
// returns the same sequences padded with '-' gap markers so that all
// share a common length.  Results are positional: the i'th output
// corresponds to the i'th input with gaps inserted and nothing else
// changed.
package msa

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrAlignmentFailure is the cause of errors produced when the
	// external aligner exits nonzero, times out, or cannot be run.
	ErrAlignmentFailure = errors.New("alignment failure")
	// ErrOutputMismatch is the cause of errors produced when the
	// aligner returns the wrong number of sequences or unexpected
	// identifiers.  It is never ignored: a silently mismatched
	// alignment would corrupt quality re-mapping downstream.
	ErrOutputMismatch = errors.New("aligner output mismatch")
)

// Aligner is the external-aligner capability.  Implementations must be
// safe for concurrent use; each Align call is independent.
type Aligner interface {
	// Align aligns seqs (len >= 1) and returns the gap-padded
	// sequences in input order, all of equal length.
	Align(ctx context.Context, seqs []string) ([]string, error)
}
