// Package split partitions images into train and validation sets while
// keeping minority classes represented and preventing leakage.
//
// The pipeline runs in three steps:
//
//  1. Locate builds a MinorityMap: for each caller-declared minority class,
//     the images that contain it. An image may appear under several classes.
//  2. Resolve pulls every image found under two or more classes into a
//     separate leakage set and removes it from the per-class lists, which are
//     then pairwise disjoint.
//  3. SplitKeys shuffles one list with an explicit random source and cuts it
//     into train, validation and an unused remainder.
//
// Splitting each exclusive list and the leakage set independently with the
// same ratios keeps class proportions roughly equal across the two sets and
// guarantees no image lands in both.
//
// # Determinism
//
// All lists are kept sorted by key before shuffling, so a given seed
// reproduces the same partition regardless of directory or map order.
package split
