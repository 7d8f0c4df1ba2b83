/*
align-families reads duplex sequencing reads that have been sorted
into barcode families and runs a multiple sequence alignment of each
family with MAFFT.

Input is tabular, one read per line:

	barcode  order  mate  name  sequence  quality

with all reads of a family (same barcode and order) on adjacent lines,
as produced by the upstream family maker.  The family maker's paired
8-column layout (barcode, order, then name/sequence/quality for each
mate) is also accepted.

Output has the same six-column shape, one line per input read in input
order, with sequence and quality padded to the family's alignment
width: '-' for a gap base, ' ' for the matching quality position.

Sample usage:

	align-families -p 8 families.tsv > aligned.tsv

The mafft binary must be on PATH.  The exit status is nonzero if any
family failed to align or any malformed input row was dropped, even
when the remaining families were written successfully.
*/
package main
