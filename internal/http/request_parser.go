package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const maxFormBytes = 64 << 10

// RequestBodyParser reads a JSON or form-encoded body once and answers field
// lookups from whichever it was.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	err      error
}

// ParseRequestBody reads and parses the request body.
func ParseRequestBody(r *http.Request) (*RequestBodyParser, error) {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxFormBytes))
	if p.err != nil {
		return nil, fmt.Errorf("read body: %w", p.err)
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RequestBodyParser) parse() error {
	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			return fmt.Errorf("parse json body: %w", err)
		}
		return nil
	}
	var err error
	p.formData, err = url.ParseQuery(trimmed)
	if err != nil {
		return fmt.Errorf("parse form body: %w", err)
	}
	return nil
}

// Get returns a trimmed, sanitized value for key.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	return sanitizeInput(p.formData.Get(key))
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
