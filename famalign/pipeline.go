package famalign

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/NickSto/duplex/encoding/famtsv"
	"github.com/NickSto/duplex/msa"
)

// Opts configures a pipeline run.
type Opts struct {
	// Parallelism is the number of concurrent aligner invocations.
	// Values below 1 are treated as 1.
	Parallelism int
	// Strict stops the run on the first malformed input row instead of
	// skipping it.
	Strict bool
	// FailFast aborts the run on the first family whose alignment
	// fails, instead of reporting it and continuing.
	FailFast bool
}

// Families are independent units of work.  A request carries one
// family tagged with its input position; workers may finish out of
// order, and the collector restores input order by sequence number
// before anything is written.
type alignReq struct {
	seq int
	fam Family
}

type alignRes struct {
	seq   int
	fam   Family
	reads []AlignedRead // nil when err != nil
	err   error
	stats Stats
}

// Run reads family records from in, aligns each family with aligner,
// and writes one aligned record per input read to out, preserving
// input order.  A family whose alignment fails is logged with its
// barcode and order and contributes no output rows; the other families
// still complete.  Run returns an error if any family failed, so
// callers never mistake partial output for complete output.
func Run(ctx context.Context, in io.Reader, out io.Writer, aligner msa.Aligner, opts Opts) (Stats, error) {
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	scanner := famtsv.NewScanner(in, opts.Strict)
	grouper := NewGrouper(scanner)
	w := famtsv.NewWriter(out)

	g, ctx := errgroup.WithContext(ctx)
	reqCh := make(chan alignReq, parallelism)
	resCh := make(chan alignRes, parallelism)

	g.Go(func() error {
		defer close(reqCh)
		seq := 0
		var fam Family
		ok := grouper.Scan(&fam)
		for ok {
			// Hold each family until the next scan succeeds (or the
			// stream ends cleanly): a scan error may have truncated the
			// family just read, and a truncated family must not be
			// aligned and emitted as if it were whole.
			var next Family
			okNext := grouper.Scan(&next)
			if !okNext {
				if err := grouper.Err(); err != nil {
					return err
				}
			}
			select {
			case reqCh <- alignReq{seq: seq, fam: fam}:
			case <-ctx.Done():
				return ctx.Err()
			}
			seq++
			fam, ok = next, okNext
		}
		return grouper.Err()
	})

	wg := sync.WaitGroup{}
	for i := 0; i < parallelism; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for req := range reqCh {
				reads, stats, err := alignFamily(ctx, aligner, &req.fam)
				res := alignRes{seq: req.seq, fam: req.fam, reads: reads, err: err, stats: stats}
				select {
				case resCh <- res:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(resCh)
	}()

	var (
		stats    Stats
		firstErr error
	)
	g.Go(func() error {
		pending := make(map[int]alignRes)
		next := 0
		for res := range resCh {
			pending[res.seq] = res
			for {
				r, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				stats = stats.Merge(r.stats)
				stats.Families++
				stats.Reads += len(r.fam.Reads)
				if r.err != nil {
					if errors.Cause(r.err) == ErrRemapInconsistency {
						// Internal invariant violation, not a flaky
						// aligner run.  Never skip it.
						return r.err
					}
					stats.FailedFamilies++
					if firstErr == nil {
						firstErr = r.err
					}
					log.Error.Printf("family %s/%s: %v", r.fam.Barcode, r.fam.Order, r.err)
					if opts.FailFast {
						return r.err
					}
					continue
				}
				for i := range r.reads {
					ar := &r.reads[i]
					if err := w.Write(&ar.Read, ar.AlignedSeq, ar.AlignedQual); err != nil {
						return errors.Wrap(err, "writing output")
					}
				}
			}
		}
		return w.Flush()
	})

	err := g.Wait()
	stats.SkippedRows = scanner.Skipped()
	if err != nil {
		return stats, err
	}
	if stats.FailedFamilies > 0 {
		return stats, errors.Wrapf(firstErr,
			"%d of %d families failed to align", stats.FailedFamilies, stats.Families)
	}
	return stats, nil
}

// alignFamily aligns one family: its mate-1 and mate-2 reads form
// separate alignment groups (mates come from opposite read ends).  The
// result has one entry per family read, in family order, or nil with
// an error naming the family.
func alignFamily(ctx context.Context, aligner msa.Aligner, fam *Family) ([]AlignedRead, Stats, error) {
	var stats Stats
	aligned := make([]AlignedRead, len(fam.Reads))
	for i := range fam.Reads {
		aligned[i].Read = fam.Reads[i]
	}
	for _, group := range mateGroups(fam) {
		seqs := make([]string, len(group))
		for j, idx := range group {
			seqs[j] = fam.Reads[idx].Seq
		}
		start := time.Now()
		out, err := aligner.Align(ctx, seqs)
		if err != nil {
			return nil, stats, errors.Wrapf(err, "family %s/%s", fam.Barcode, fam.Order)
		}
		if len(seqs) > 1 {
			stats.AlignerRuns++
			stats.AlignedReads += len(seqs)
			stats.AlignTime += time.Since(start)
		}
		if len(out) != len(seqs) {
			return nil, stats, errors.Wrapf(msa.ErrOutputMismatch,
				"family %s/%s: %d sequences in, %d out", fam.Barcode, fam.Order, len(seqs), len(out))
		}
		for j, idx := range group {
			if len(out[j]) != len(out[0]) {
				return nil, stats, errors.Wrapf(msa.ErrOutputMismatch,
					"family %s/%s: ragged alignment widths %d and %d",
					fam.Barcode, fam.Order, len(out[0]), len(out[j]))
			}
			qual, err := transferGaps(fam.Reads[idx].Qual, out[j])
			if err != nil {
				return nil, stats, errors.Wrapf(err, "family %s/%s read %s",
					fam.Barcode, fam.Order, fam.Reads[idx].Name)
			}
			aligned[idx].AlignedSeq = out[j]
			aligned[idx].AlignedQual = qual
		}
	}
	return aligned, stats, nil
}

// mateGroups returns the family's read indices partitioned by mate, in
// first-seen mate order, preserving read order within each group.
func mateGroups(fam *Family) [][]int {
	var groups [][]int
	byMate := map[string]int{}
	for i, r := range fam.Reads {
		gi, ok := byMate[r.Mate]
		if !ok {
			gi = len(groups)
			byMate[r.Mate] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}
	return groups
}
