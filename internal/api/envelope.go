package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a body fits neither a known error
// shape nor the expected success shape.
var ErrMalformedResponse = errors.New("malformed response")

// Variant says which of the endpoint's untagged payloads a body decoded to.
type Variant int

// VariantUnknown is the zero value; Decode never returns it without an error.
const (
	VariantUnknown Variant = iota
	VariantSuccess
	VariantWafBlocked
	VariantPlain
)

func (v Variant) String() string {
	switch v {
	case VariantUnknown:
		return "unknown"
	case VariantSuccess:
		return "success"
	case VariantWafBlocked:
		return "waf-blocked"
	case VariantPlain:
		return "plain-error"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// EndpointError is the object the endpoint puts under the "error" key.
type EndpointError struct {
	Message string  `json:"message"`
	WafCode *uint32 `json:"waf_code,omitempty"`
}

// Response is one decoded body: either an endpoint error or a T. A Response
// returned alongside an error keeps VariantUnknown and carries nothing.
type Response[T any] struct {
	Variant Variant
	Error   *EndpointError
	Value   T
}

// Unwrap returns the success value, or a *RejectedError for either error variant.
// An undecoded Response unwraps to ErrMalformedResponse.
func (r Response[T]) Unwrap() (T, error) {
	if r.Variant == VariantSuccess {
		return r.Value, nil
	}
	var zero T
	if r.Variant == VariantUnknown {
		return zero, fmt.Errorf("%w: response was never decoded", ErrMalformedResponse)
	}
	rejected := &RejectedError{Variant: r.Variant}
	if r.Error != nil {
		rejected.Message = r.Error.Message
		if r.Error.WafCode != nil {
			rejected.WafCode = *r.Error.WafCode
		}
	}
	return zero, rejected
}

// RejectedError reports that the endpoint answered with an error payload.
type RejectedError struct {
	Variant Variant
	Message string
	WafCode uint32
}

func (e *RejectedError) Error() string {
	if e.Variant == VariantWafBlocked {
		return fmt.Sprintf("endpoint error (blocked by WAF, code %d): %s", e.WafCode, e.Message)
	}
	return fmt.Sprintf("endpoint error: %s", e.Message)
}

// Decode resolves body into exactly one of the endpoint's payloads. Error
// shapes are tried first, most specific first; success is only accepted when
// body fits the success shape and unmarshals into T.
func Decode[T any](body []byte, success *Shape) (Response[T], error) {
	var resp Response[T]

	if !json.Valid(body) {
		return resp, fmt.Errorf("%w: body is not valid JSON", ErrMalformedResponse)
	}

	for _, candidate := range errorShapes {
		ok, err := candidate.shape.Matches(body)
		if err != nil {
			return resp, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, candidate.shape.Name(), err)
		}
		if !ok {
			continue
		}

		// a schema match the typed decode cannot hold (waf_code 1.0) falls
		// through to the next, less specific shape
		endpointErr, err := decodeEndpointError(body, candidate.variant)
		if err != nil {
			continue
		}
		resp.Variant = candidate.variant
		resp.Error = endpointErr
		return resp, nil
	}

	ok, err := success.Matches(body)
	if err != nil {
		return resp, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, success.Name(), err)
	}
	if !ok {
		return resp, fmt.Errorf("%w: body matches no error shape and not %s", ErrMalformedResponse, success.Name())
	}

	if err := json.Unmarshal(body, &resp.Value); err != nil {
		return resp, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, success.Name(), err)
	}
	resp.Variant = VariantSuccess
	return resp, nil
}

func decodeEndpointError(body []byte, variant Variant) (*EndpointError, error) {
	if variant == VariantWafBlocked {
		var wrapped struct {
			Error EndpointError `json:"error"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, err
		}
		return &wrapped.Error, nil
	}

	// waf_code may be present with a non-integer value here; it is not ours to read
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return &EndpointError{Message: wrapped.Error.Message}, nil
}
