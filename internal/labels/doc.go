// Package labels reads and writes normalized object-detection label files.
//
// A label file holds one line per object instance:
//
//	class_id x_center y_center width height
//
// The four geometry fields are floats normalized to [0,1] relative to the
// image width and height. A label file and its image share a filename stem,
// the ImageKey, which is the only identity an image has in this module.
//
// # Index
//
// Scan reads a whole label directory into Records, one per file, holding the
// set of classes present in the file and a per-class instance count. Files
// are parsed in parallel on a bounded worker pool; the call returns only once
// every file has been read, so callers always see a complete index.
//
// # Error Handling
//
// A line whose first token is not a non-negative integer, or a file without
// any object lines, produces a *ParseError naming the file and line. Scan
// reports every offending file at once rather than stopping at the first.
package labels
