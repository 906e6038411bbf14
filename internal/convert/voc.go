package convert

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Annotation is the subset of a VOC annotation file the converter reads.
type Annotation struct {
	XMLName  xml.Name `xml:"annotation"`
	Filename string   `xml:"filename"`
	Size     struct {
		Width  string `xml:"width"`
		Height string `xml:"height"`
	} `xml:"size"`
	Objects []Object `xml:"object"`
}

// Object is one annotated instance.
type Object struct {
	Name   string `xml:"name"`
	BndBox struct {
		XMin string `xml:"xmin"`
		YMin string `xml:"ymin"`
		XMax string `xml:"xmax"`
		YMax string `xml:"ymax"`
	} `xml:"bndbox"`
}

// Bounds parses the box corners. Integer and decimal text are accepted.
func (o Object) Bounds() (xmin, ymin, xmax, ymax float64, err error) {
	b := o.BndBox
	vals := [4]float64{}
	for i, f := range []struct{ name, text string }{
		{"xmin", b.XMin}, {"ymin", b.YMin}, {"xmax", b.XMax}, {"ymax", b.YMax},
	} {
		vals[i], err = parseNumber(f.name, f.text)
		if err != nil {
			return 0, 0, 0, 0, err
		}
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}

// ImageSize parses <size>. A missing or zero size returns ok == false.
func (a *Annotation) ImageSize() (width, height int, ok bool, err error) {
	if strings.TrimSpace(a.Size.Width) == "" || strings.TrimSpace(a.Size.Height) == "" {
		return 0, 0, false, nil
	}
	w, err := parseNumber("width", a.Size.Width)
	if err != nil {
		return 0, 0, false, err
	}
	h, err := parseNumber("height", a.Size.Height)
	if err != nil {
		return 0, 0, false, err
	}
	if w <= 0 || h <= 0 {
		return 0, 0, false, nil
	}
	return int(w), int(h), true, nil
}

func parseNumber(field, text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("missing <%s>", field)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("<%s> %q is not a number", field, text)
	}
	return v, nil
}

// Decode reads one annotation.
func Decode(r io.Reader) (*Annotation, error) {
	var a Annotation
	if err := xml.NewDecoder(r).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DecodeFile reads the annotation at path.
func DecodeFile(path string) (*Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
