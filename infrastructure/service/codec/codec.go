// Package codec turns session values into the opaque text blobs kept in the
// persistence space and back.
//
// The transform is JSON, then encodeURIComponent-style percent encoding, then
// standard base64. It is pure: no storage and no logging happen here.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Stage identifies which step of Decode failed.
type Stage string

const (
	StageBase64  Stage = "base64"
	StagePercent Stage = "percent"
	StageJSON    Stage = "json"
)

// DecodeError is returned for every malformed blob. Callers treat it as
// "no session".
type DecodeError struct {
	Stage Stage
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode serializes v into a blob that Decode accepts.
func Encode(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return base64.StdEncoding.EncodeToString([]byte(escapeComponent(string(raw)))), nil
}

// Decode reverses Encode into v. It never panics; any failure is a
// *DecodeError and v must then be ignored.
func Decode(blob string, v interface{}) error {
	percent, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return &DecodeError{Stage: StageBase64, Err: err}
	}

	text, err := url.PathUnescape(string(percent))
	if err != nil {
		return &DecodeError{Stage: StagePercent, Err: err}
	}
	if !utf8.ValidString(text) {
		return &DecodeError{Stage: StagePercent, Err: fmt.Errorf("malformed utf-8 sequence")}
	}

	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(v); err != nil {
		return &DecodeError{Stage: StageJSON, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return &DecodeError{Stage: StageJSON, Err: fmt.Errorf("trailing data after value")}
	}
	return nil
}

// escapeComponent matches JavaScript's encodeURIComponent: everything except
// A-Z a-z 0-9 - _ . ! ~ * ' ( ) is percent-encoded byte by byte.
func escapeComponent(s string) string {
	var buf bytes.Buffer
	buf.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			buf.WriteByte(c)
			continue
		}
		fmt.Fprintf(&buf, "%%%02X", c)
	}
	return buf.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// Codec adapts the package functions to outbound.SessionCodec.
type Codec struct{}

func (Codec) Encode(v interface{}) (string, error) { return Encode(v) }

func (Codec) Decode(blob string, v interface{}) error { return Decode(blob, v) }
