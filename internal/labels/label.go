package labels

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// ClassID identifies an object category. It is stable across label files.
type ClassID int

// ImageKey is the filename stem shared by an image and its label file.
type ImageKey string

// Box is one normalized bounding box.
type Box struct {
	Class   ClassID
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

// Normalize converts a pixel rectangle into a normalized box for an image of
// the given size.
func Normalize(class ClassID, xmin, ymin, xmax, ymax float64, imgWidth, imgHeight int) (Box, error) {
	if imgWidth <= 0 || imgHeight <= 0 {
		return Box{}, fmt.Errorf("invalid image size %dx%d", imgWidth, imgHeight)
	}
	w := float64(imgWidth)
	h := float64(imgHeight)
	return Box{
		Class:   class,
		XCenter: (xmin + xmax) / 2 / w,
		YCenter: (ymin + ymax) / 2 / h,
		Width:   (xmax - xmin) / w,
		Height:  (ymax - ymin) / h,
	}, nil
}

// Denormalize returns the pixel bounds (xmin, ymin, xmax, ymax) of b for an
// image of the given size.
func (b Box) Denormalize(imgWidth, imgHeight int) (xmin, ymin, xmax, ymax float64) {
	w := float64(imgWidth)
	h := float64(imgHeight)
	cx, cy := b.XCenter*w, b.YCenter*h
	bw, bh := b.Width*w, b.Height*h
	return cx - bw/2, cy - bh/2, cx + bw/2, cy + bh/2
}

// Rect rounds the denormalized box to an integer rectangle.
func (b Box) Rect(imgWidth, imgHeight int) image.Rectangle {
	x0, y0, x1, y1 := b.Denormalize(imgWidth, imgHeight)
	return image.Rect(round(x0), round(y0), round(x1), round(y1))
}

func round(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}

// String formats the box as a label line without the trailing newline.
// Geometry is written with six decimals so output is byte-stable.
func (b Box) String() string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", b.Class, b.XCenter, b.YCenter, b.Width, b.Height)
}

// ParseClassID parses the leading class token of a label line.
func ParseClassID(tok string) (ClassID, error) {
	id, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("class id %q is not an integer", tok)
	}
	if id < 0 {
		return 0, fmt.Errorf("class id %d is negative", id)
	}
	return ClassID(id), nil
}

// ParseLine parses a full label line into a Box.
func ParseLine(line string) (Box, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Box{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}
	id, err := ParseClassID(fields[0])
	if err != nil {
		return Box{}, err
	}
	var vals [4]float64
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Box{}, fmt.Errorf("field %d %q is not a number", i+2, f)
		}
		vals[i] = v
	}
	return Box{Class: id, XCenter: vals[0], YCenter: vals[1], Width: vals[2], Height: vals[3]}, nil
}
