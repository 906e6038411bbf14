// Package assemble builds a train/validation dataset from a label directory.
//
// NewPlan runs the minority split pipeline (see package split) over an
// in-memory index: one independent split per exclusive minority class list,
// one for the images shared between minority classes, and optionally one for
// images with no minority class at all. The per-bucket results are unioned
// into global train and validation sets.
//
// Materialize copies each planned image and its label file into
// <out>/train or <out>/val and writes <out>/data.yaml. A key whose image or
// label file is missing is reported and skipped; the rest of the batch still
// runs. Copies happen on a bounded worker pool and stop early when the
// context is cancelled.
package assemble
