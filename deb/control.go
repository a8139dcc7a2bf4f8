package deb

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Field is a single "Name: value" entry of a control file.
type Field struct {
	Name  string
	Value string
}

// ControlSet is the ordered set of fields of a Debian 'control' file.
//
// Fields keep the position of their first occurrence; setting an existing
// name overwrites its value in place. The zero value is an empty set ready
// to use.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#binary-package-control-files-debian-control
type ControlSet struct {
	// Source is the path the set was read from, used in error messages.
	Source string

	fields []Field
	index  map[string]int
}

// NewControlSet returns an empty set whose errors refer to source.
func NewControlSet(source string) *ControlSet {
	return &ControlSet{Source: source}
}

// ReadControlFile reads and parses the control file at path.
func ReadControlFile(path string) (*ControlSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return ParseControl(data, path)
}

// ParseControl parses the content of a control file.
//
// Continuation lines (starting with a space or a tab) are folded into the
// previous field: the line break and the leading whitespace become a single
// space. Every other non-blank line is split on its first colon; the value
// may contain colons. A repeated name overwrites the earlier value.
func ParseControl(data []byte, source string) (*ControlSet, error) {
	cs := NewControlSet(source)

	type logical struct {
		line int
		text string
	}
	var lines []logical

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(lines) > 0 {
				last := &lines[len(lines)-1]
				last.text += " " + strings.TrimLeft(line, " \t")
				continue
			}
		}
		lines = append(lines, logical{line: i + 1, text: line})
	}

	for _, l := range lines {
		name, value, ok := strings.Cut(l.text, ":")
		if !ok {
			return nil, &SyntaxError{Source: source, Line: l.line, Text: l.text}
		}
		cs.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return cs, nil
}

// Set stores value under name. A new name is appended at the end, an
// existing one keeps its position.
func (cs *ControlSet) Set(name, value string) {
	if cs.index == nil {
		cs.index = make(map[string]int)
	}
	if i, ok := cs.index[name]; ok {
		cs.fields[i].Value = value
		return
	}
	cs.index[name] = len(cs.fields)
	cs.fields = append(cs.fields, Field{Name: name, Value: value})
}

// Get returns the value stored under name.
func (cs *ControlSet) Get(name string) (string, bool) {
	i, ok := cs.index[name]
	if !ok {
		return "", false
	}
	return cs.fields[i].Value, true
}

// Value returns the value of a standard field, or "" when it is absent.
func (cs *ControlSet) Value(field ControlField) string {
	v, _ := cs.Get(string(field))
	return v
}

// Len returns the number of fields.
func (cs *ControlSet) Len() int { return len(cs.fields) }

// Fields returns a copy of the fields in order.
func (cs *ControlSet) Fields() []Field {
	out := make([]Field, len(cs.fields))
	copy(out, cs.fields)
	return out
}

// Clone returns an independent copy of the set.
func (cs *ControlSet) Clone() *ControlSet {
	out := NewControlSet(cs.Source)
	for _, f := range cs.fields {
		out.Set(f.Name, f.Value)
	}
	return out
}

// Validate checks that every mandatory field is present and not empty.
// It reports the first missing one, in MandatoryFields order.
func (cs *ControlSet) Validate() error {
	for _, field := range MandatoryFields {
		if cs.Value(field) == "" {
			return &MissingFieldError{Field: field, Source: cs.Source}
		}
	}
	return nil
}

// WithInstalledSize returns a copy of the set carrying the Installed-Size
// field computed from the total payload size: kibibytes, rounded down.
// The receiver is left untouched.
func (cs *ControlSet) WithInstalledSize(totalBytes int64) *ControlSet {
	out := cs.Clone()
	out.Set(string(FieldInstalledSize), strconv.FormatInt(totalBytes/1024, 10))
	return out
}

// Filename returns the name of the package file built from this set.
// Format: {Package}_{Version}-{Architecture}.deb
func (cs *ControlSet) Filename() string {
	return fmt.Sprintf("%s_%s-%s.deb", cs.Value(FieldPackage), cs.Value(FieldVersion), cs.Value(FieldArchitecture))
}

// Bytes renders the set as the content of a 'control' file.
// Entries with an empty name are dropped.
func (cs *ControlSet) Bytes() []byte {
	var b bytes.Buffer
	for _, f := range cs.fields {
		if f.Name == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Value)
	}
	return b.Bytes()
}

// WriteTo writes the rendered control file to w.
// This satisfies the io.WriterTo interface.
func (cs *ControlSet) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(cs.Bytes())
	return int64(n), err
}

func (cs *ControlSet) String() string { return string(cs.Bytes()) }
