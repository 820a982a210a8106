package edge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Event is the payload CloudFront delivers to an edge function.
type Event struct {
	Records []Record `json:"Records"`
}

// Record wraps a single CloudFront request. Decoding a record never
// fails, a record that cannot be read keeps its error until its
// request is asked for.
type Record struct {
	CF *CloudFront `json:"cf"`

	err error
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var aux struct {
		CF json.RawMessage `json:"cf"`
	}

	*r = Record{}

	if err := json.Unmarshal(data, &aux); err != nil {
		r.err = err
		return nil
	}

	if isNull(aux.CF) {
		return nil
	}

	var cf CloudFront
	if err := json.Unmarshal(aux.CF, &cf); err != nil {
		r.err = fmt.Errorf("cf: %w", err)
		return nil
	}

	r.CF = &cf

	return nil
}

// CloudFront holds the distribution metadata and the request of a record.
type CloudFront struct {
	Config  Config   `json:"config"`
	Request *Request `json:"request"`
}

func (c *CloudFront) UnmarshalJSON(data []byte) error {
	var aux struct {
		Config  json.RawMessage `json:"config"`
		Request json.RawMessage `json:"request"`
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*c = CloudFront{}

	// fields of unexpected types are left empty
	if !isNull(aux.Config) {
		_ = json.Unmarshal(aux.Config, &c.Config)
	}

	if isNull(aux.Request) {
		return nil
	}

	c.Request = &Request{}
	if err := json.Unmarshal(aux.Request, c.Request); err != nil {
		return fmt.Errorf("request: %w", err)
	}

	return nil
}

// Config describes the distribution that triggered the event.
type Config struct {
	DistributionDomainName string `json:"distributionDomainName"`
	DistributionID         string `json:"distributionId"`
	EventType              string `json:"eventType"`
	RequestID              string `json:"requestId"`
}

// Header is a single CloudFront header entry.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Headers maps lowercased header names to their entries.
type Headers map[string][]Header

// Get returns the first value of the named header, if any.
func (h Headers) Get(name string) string {
	entries := h[strings.ToLower(name)]
	if len(entries) == 0 {
		return ""
	}

	return entries[0].Value
}

// Request is the CloudFront request handed to the function. Only the
// uri is decoded and checked. Every other field is kept as received and
// written back verbatim, the accessors below are read-only views of it.
type Request struct {
	URI string

	raw        map[string]json.RawMessage
	uriMissing bool
}

const (
	keyClientIP    = "clientIp"
	keyMethod      = "method"
	keyURI         = "uri"
	keyQueryString = "querystring"
	keyHeaders     = "headers"
)

func (r *Request) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Request{raw: raw}

	uri, ok := raw[keyURI]
	if !ok {
		r.uriMissing = true
		return nil
	}

	var s *string
	if err := json.Unmarshal(uri, &s); err != nil {
		return fmt.Errorf("uri: expected string: %w", err)
	}
	if s == nil {
		return fmt.Errorf("uri: expected string, got null")
	}
	r.URI = *s

	return nil
}

func (r Request) MarshalJSON() ([]byte, error) {
	uri, err := json.Marshal(r.URI)
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(r.raw)+1)
	for k, v := range r.raw {
		out[k] = v
	}
	out[keyURI] = uri

	return json.Marshal(out)
}

// ClientIP returns the viewer address, or "" if it is absent or not a
// string.
func (r *Request) ClientIP() string {
	return r.stringField(keyClientIP)
}

// Method returns the http method, or "" if it is absent or not a
// string.
func (r *Request) Method() string {
	return r.stringField(keyMethod)
}

// QueryString returns the raw query string, or "" if it is absent or
// not a string.
func (r *Request) QueryString() string {
	return r.stringField(keyQueryString)
}

// Headers decodes the request headers. Entries of unexpected shape are
// skipped.
func (r *Request) Headers() Headers {
	v, ok := r.raw[keyHeaders]
	if !ok {
		return nil
	}

	var h Headers
	_ = json.Unmarshal(v, &h)

	return h
}

func (r *Request) stringField(key string) string {
	v, ok := r.raw[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}

	return s
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
