// Package imaging reads image dimensions for annotation conversion.
//
// VOC annotation files normally carry the image size in their <size>
// element, but exports from some labeling tools leave it at zero. The
// converter falls back to this package to read the size from the image
// itself.
//
// # Orientation
//
// Images are opened with EXIF auto-orientation, so a photo stored rotated
// reports the width and height it is displayed and annotated with.
//
// # Thread Safety
//
// DimensionCache is safe for concurrent use. It holds at most a fixed number
// of entries and evicts the least recently used one when full.
package imaging
