// Package convert turns PASCAL VOC XML annotations into normalized label
// files.
//
// Each <object> becomes one line "class_id x_center y_center width height"
// with
//
//	x_center = (xmin+xmax)/2/width    width  = (xmax-xmin)/width
//	y_center = (ymin+ymax)/2/height   height = (ymax-ymin)/height
//
// where width and height come from the annotation's <size> element. Object
// names are mapped to ids through a classes.Table; an unknown name fails the
// file. Output is formatted with fixed precision, so converting the same XML
// twice yields identical bytes.
package convert
