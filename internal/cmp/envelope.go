// Package cmp defines the JSON envelopes exchanged with the terminal's CMP
// service and the request parameter sets that go into them.
package cmp

import (
	"fmt"

	json "github.com/goccy/go-json"

	"cmpfetch/cli/internal/errors"
)

// Parameter is one name/value pair of a CMP request. Values are always
// strings on the wire.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Parameters is an ordered request parameter list. Order is preserved so
// serialized requests are deterministic.
type Parameters []Parameter

// With returns a copy of p with the given pair appended.
func (p Parameters) With(name, value string) Parameters {
	out := make(Parameters, len(p), len(p)+1)
	copy(out, p)
	return append(out, Parameter{Name: name, Value: value})
}

// Get returns the value for name and whether it was present.
func (p Parameters) Get(name string) (string, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return "", false
}

// BoolValue formats a flag the way the service expects ("True"/"False").
func BoolValue(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

type requestBody struct {
	Parameters []Parameter `json:"parameters"`
}

type requestEnvelope struct {
	CmpExcelRequest requestBody `json:"cmpExcelRequest"`
}

// EncodeRequest wraps the parameters in the cmpExcelRequest envelope.
func EncodeRequest(p Parameters) ([]byte, error) {
	env := requestEnvelope{CmpExcelRequest: requestBody{Parameters: p}}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode cmp request: %w", err)
	}
	return data, nil
}

type responseEnvelope struct {
	ErrorResponse *struct {
		Message string `json:"message"`
	} `json:"errorResponse"`
	CmpExcelResponse *struct {
		Results []struct {
			Fields []struct {
				Name  string `json:"name"`
				Value any    `json:"value"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"cmpExcelResponse"`
}

// Response is a decoded CMP response: either a service error message or the
// flattened field set of every result.
type Response struct {
	// ErrorMessage carries errorResponse.message; empty on success.
	ErrorMessage string
	// Fields maps field name to its raw value across all results.
	Fields map[string]any
	// FieldOrder preserves first-seen field order for stable output.
	FieldOrder []string
}

// IsError reports whether the service returned an errorResponse.
func (r *Response) IsError() bool { return r.ErrorMessage != "" }

// DecodeResponse parses a responseData payload. A payload carrying neither
// an errorResponse nor a cmpExcelResponse is a bad response.
func DecodeResponse(data []byte) (*Response, error) {
	var env responseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(errors.BadResponse, "undecodable cmp response", err)
	}

	if env.ErrorResponse != nil {
		return &Response{ErrorMessage: env.ErrorResponse.Message}, nil
	}
	if env.CmpExcelResponse == nil {
		return nil, errors.New(errors.BadResponse, "unexpected response format: "+truncate(string(data), 200))
	}

	out := &Response{Fields: make(map[string]any)}
	for _, result := range env.CmpExcelResponse.Results {
		for _, f := range result.Fields {
			if _, seen := out.Fields[f.Name]; !seen {
				out.FieldOrder = append(out.FieldOrder, f.Name)
			}
			out.Fields[f.Name] = f.Value
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
