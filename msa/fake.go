package msa

import "context"

// Fake is an Aligner for tests.  Fn, if set, supplies the alignment
// and receives the caller's context so tests can model slow or
// cancellation-aware aligners; otherwise every sequence is returned
// unchanged.
type Fake struct {
	Fn func(ctx context.Context, seqs []string) ([]string, error)
}

// Align implements Aligner.
func (f *Fake) Align(ctx context.Context, seqs []string) ([]string, error) {
	if f.Fn != nil {
		return f.Fn(ctx, seqs)
	}
	out := make([]string, len(seqs))
	copy(out, seqs)
	return out, nil
}
