package labels

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the extension of label files.
const Ext = ".txt"

// ErrEmptyLabelFile is wrapped by a ParseError for a file with no object lines.
var ErrEmptyLabelFile = errors.New("label file has no object lines")

// ParseError reports a malformed label file. Line is 0 when the problem
// concerns the file as a whole.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Record is the annotation summary of one image.
type Record struct {
	Key  ImageKey
	Path string

	// Classes holds each class present in the file once, ascending.
	Classes []ClassID

	// Instances counts object lines per class.
	Instances map[ClassID]int
}

// Has reports whether the record contains class id.
func (r Record) Has(id ClassID) bool {
	i := sort.Search(len(r.Classes), func(i int) bool { return r.Classes[i] >= id })
	return i < len(r.Classes) && r.Classes[i] == id
}

// KeyFor returns the ImageKey of a file path: its base name without extension.
func KeyFor(path string) ImageKey {
	base := filepath.Base(path)
	return ImageKey(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ReadRecord reads the label file at path. Only the class token of each line
// is inspected. Blank lines are ignored.
func ReadRecord(path string, allowEmpty bool) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()

	rec := Record{
		Key:       KeyFor(path),
		Path:      path,
		Instances: make(map[ClassID]int),
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		id, err := ParseClassID(fields[0])
		if err != nil {
			return Record{}, &ParseError{Path: path, Line: lineNo, Err: err}
		}
		rec.Instances[id]++
	}
	if err := scanner.Err(); err != nil {
		return Record{}, &ParseError{Path: path, Err: err}
	}
	if len(rec.Instances) == 0 && !allowEmpty {
		return Record{}, &ParseError{Path: path, Err: ErrEmptyLabelFile}
	}

	rec.Classes = make([]ClassID, 0, len(rec.Instances))
	for id := range rec.Instances {
		rec.Classes = append(rec.Classes, id)
	}
	sort.Slice(rec.Classes, func(i, j int) bool { return rec.Classes[i] < rec.Classes[j] })
	return rec, nil
}

// ReadBoxes parses every object line of a label file.
func ReadBoxes(path string) ([]Box, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()

	var boxes []Box
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		b, err := ParseLine(line)
		if err != nil {
			return nil, &ParseError{Path: path, Line: lineNo, Err: err}
		}
		boxes = append(boxes, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return boxes, nil
}

// Keys returns the keys of records in order.
func Keys(records []Record) []ImageKey {
	keys := make([]ImageKey, len(records))
	for i, r := range records {
		keys[i] = r.Key
	}
	return keys
}
