package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"unicode/utf8"

	"catchall-api/internal/model"
)

// DecodeBody returns the base64 form of raw and, when raw is a single valid
// JSON document, its parsed value. Numbers keep their exact text.
func DecodeBody(raw []byte) model.Body {
	body, _ := decodeBody(raw)
	return body
}

func decodeBody(raw []byte) (model.Body, bool) {
	body := model.Body{Raw: base64.StdEncoding.EncodeToString(raw)}
	v, ok := parseJSON(raw)
	if ok {
		body.JSON = v
	}
	return body, ok
}

func parseJSON(raw []byte) (any, bool) {
	if len(raw) == 0 || !utf8.Valid(raw) {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	if !finiteNumbers(v) {
		return nil, false
	}
	return v, true
}

// finiteNumbers reports whether every number in v fits a float64.
func finiteNumbers(v any) bool {
	switch t := v.(type) {
	case json.Number:
		_, err := t.Float64()
		return err == nil
	case map[string]any:
		for _, e := range t {
			if !finiteNumbers(e) {
				return false
			}
		}
	case []any:
		for _, e := range t {
			if !finiteNumbers(e) {
				return false
			}
		}
	}
	return true
}
