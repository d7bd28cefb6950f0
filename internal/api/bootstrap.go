package api

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/asaskevich/govalidator"
)

// ErrMissingOrInvalidField is returned when the bootstrap download URL is
// absent from an otherwise well-formed config or is not an absolute http(s) URL.
var ErrMissingOrInvalidField = errors.New("missing or invalid field")

// BootstrapConfig is the part of the endpoint's config object this tool
// reads. The real object carries many more fields; they are ignored.
type BootstrapConfig struct {
	DownloadURLs DownloadURLs `json:"downloadUrls"`
}

// DownloadURLs holds the installer locations published by the endpoint.
type DownloadURLs struct {
	Bootstrap string `json:"bootstrap"`
}

// BootstrapConfigShape accepts any object with a downloadUrls object and no
// non-null error key. A present bootstrap entry must be a string.
var BootstrapConfigShape = MustShape("bootstrap-config", 1, `{
  "type": "object",
  "required": ["downloadUrls"],
  "not": {
    "required": ["error"],
    "properties": {"error": {"not": {"type": "null"}}}
  },
  "properties": {
    "downloadUrls": {
      "type": "object",
      "properties": {
        "bootstrap": {"type": "string"}
      }
    }
  }
}`)

// DecodeBootstrapConfig decodes an endpoint body and fails with
// *RejectedError or ErrMalformedResponse unless it is a config object.
func DecodeBootstrapConfig(body []byte) (BootstrapConfig, error) {
	resp, err := Decode[BootstrapConfig](body, BootstrapConfigShape)
	if err != nil {
		return BootstrapConfig{}, err
	}
	return resp.Unwrap()
}

// ExtractBootstrapURL returns downloadUrls.bootstrap as an absolute URL.
func ExtractBootstrapURL(cfg BootstrapConfig) (*url.URL, error) {
	raw := cfg.DownloadURLs.Bootstrap
	if raw == "" {
		return nil, fmt.Errorf("%w: downloadUrls.bootstrap is absent", ErrMissingOrInvalidField)
	}
	if !govalidator.IsRequestURL(raw) {
		return nil, fmt.Errorf("%w: downloadUrls.bootstrap %q is not an absolute URL", ErrMissingOrInvalidField, raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: downloadUrls.bootstrap: %v", ErrMissingOrInvalidField, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: downloadUrls.bootstrap has unsupported scheme %q", ErrMissingOrInvalidField, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: downloadUrls.bootstrap %q has no host", ErrMissingOrInvalidField, raw)
	}
	return u, nil
}
