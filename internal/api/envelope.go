package api

import "github.com/danielgtaylor/huma/v2"

// envelopeVersion is bumped when the response envelope shape changes,
// so clients can detect incompatible servers.
const envelopeVersion = 1

// Envelope is the standard wrapper around every successful response body.
type Envelope struct {
	V       int  `json:"v" doc:"Envelope version"`
	Success bool `json:"success" doc:"Whether the request succeeded"`
	Data    any  `json:"data" doc:"Response payload"`
}

// EnvelopeTransformer wraps 2xx response bodies in the standard envelope.
// Error responses keep their own shape (see APIError).
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if v == nil {
		return v, nil
	}
	// Error bodies carry their own structure.
	if _, isErr := v.(*APIError); isErr {
		return v, nil
	}
	if len(status) > 0 && status[0] != '2' {
		return v, nil
	}
	return &Envelope{V: envelopeVersion, Success: true, Data: v}, nil
}
