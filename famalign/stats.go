package famalign

import (
	"time"

	"github.com/grailbio/base/log"
)

// Stats represents high-level statistics for one pipeline run.
type Stats struct {
	// Reads is the total number of well-formed input reads.
	Reads int
	// SkippedRows is the number of malformed input rows dropped in
	// lenient mode.
	SkippedRows int
	// Families is the total number of (barcode, order) families seen.
	Families int
	// AlignerRuns is the number of external aligner invocations.
	// Singleton groups bypass the aligner and are not counted.
	AlignerRuns int
	// AlignedReads is the number of reads that went through an aligner
	// run (members of multi-read groups).
	AlignedReads int
	// FailedFamilies is the number of families whose alignment failed
	// and whose reads therefore produced no output.
	FailedFamilies int
	// AlignTime is cumulative wall time spent inside aligner runs,
	// summed across workers.
	AlignTime time.Duration
}

// Merge adds the field values of the two Stats objects and creates new
// Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Reads += o.Reads
	s.SkippedRows += o.SkippedRows
	s.Families += o.Families
	s.AlignerRuns += o.AlignerRuns
	s.AlignedReads += o.AlignedReads
	s.FailedFamilies += o.FailedFamilies
	s.AlignTime += o.AlignTime
	return s
}

// Log writes the end-of-run summary.  elapsed is the wall time of the
// whole run.
func (s Stats) Log(elapsed time.Duration) {
	log.Printf("Processed %d reads in %d families.", s.Reads, s.Families)
	if s.SkippedRows > 0 {
		log.Printf("Skipped %d malformed input rows.", s.SkippedRows)
	}
	if s.FailedFamilies > 0 {
		log.Printf("%d families failed to align.", s.FailedFamilies)
	}
	if s.AlignerRuns > 0 {
		log.Printf("%.3fs per read, %.3fs per aligner run.",
			s.AlignTime.Seconds()/float64(s.AlignedReads),
			s.AlignTime.Seconds()/float64(s.AlignerRuns))
	}
	log.Printf("%ds total time.", int(elapsed.Seconds()))
}
