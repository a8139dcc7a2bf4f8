package deb

import (
	"bytes"
	"fmt"
	"text/template"
)

// renderControl expands the control file read from source as a
// text/template over defines. A control file without "{{" is returned
// unchanged. Template errors, including a reference to an undefined key,
// make the control file malformed.
func renderControl(source string, data []byte, defines map[string]string) ([]byte, error) {
	if !bytes.Contains(data, []byte("{{")) {
		return data, nil
	}
	t, err := template.New(source).Option("missingkey=error").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedControl, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, defines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedControl, err)
	}
	return buf.Bytes(), nil
}
