package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorShapesOrderedBySpecificity(t *testing.T) {
	require.Len(t, errorShapes, 2)
	assert.Equal(t, VariantWafBlocked, errorShapes[0].variant)
	assert.Equal(t, VariantPlain, errorShapes[1].variant)
	assert.Greater(t, errorShapes[0].shape.Specificity(), errorShapes[1].shape.Specificity())
}

func TestDecode_WafBlocked(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		code    uint32
	}{
		{
			name:    "identify error",
			body:    `{"error":{"message":"Please identify yourself","waf_code":13799}}`,
			message: "Please identify yourself",
			code:    13799,
		},
		{
			name:    "zero code still counts as waf",
			body:    `{"error":{"message":"blocked","waf_code":0}}`,
			message: "blocked",
			code:    0,
		},
		{
			name:    "extra fields are ignored",
			body:    `{"error":{"message":"blocked","waf_code":42,"status_code":403,"trace":"x"},"requestId":"r-1"}`,
			message: "blocked",
			code:    42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Decode[BootstrapConfig]([]byte(tt.body), BootstrapConfigShape)
			require.NoError(t, err)
			assert.Equal(t, VariantWafBlocked, resp.Variant)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.message, resp.Error.Message)
			require.NotNil(t, resp.Error.WafCode)
			assert.Equal(t, tt.code, *resp.Error.WafCode)

			_, err = resp.Unwrap()
			var rejected *RejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, VariantWafBlocked, rejected.Variant)
			assert.Equal(t, tt.message, rejected.Message)
			assert.Equal(t, tt.code, rejected.WafCode)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDecode_Plain(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"message only", `{"error":{"message":"Missing Credentials","status_code":401}}`},
		{"waf_code with wrong type", `{"error":{"message":"Missing Credentials","waf_code":"13799"}}`},
		{"negative waf_code", `{"error":{"message":"Missing Credentials","waf_code":-1}}`},
		{"waf_code as float", `{"error":{"message":"Missing Credentials","waf_code":1.0}}`},
		{"waf_code in exponent form", `{"error":{"message":"Missing Credentials","waf_code":1e3}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Decode[BootstrapConfig]([]byte(tt.body), BootstrapConfigShape)
			require.NoError(t, err)
			assert.Equal(t, VariantPlain, resp.Variant)
			assert.Equal(t, "Missing Credentials", resp.Error.Message)
			assert.Nil(t, resp.Error.WafCode)

			_, err = resp.Unwrap()
			var rejected *RejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, VariantPlain, rejected.Variant)
			assert.Equal(t, "endpoint error: Missing Credentials", err.Error())
		})
	}
}

func TestDecode_Success(t *testing.T) {
	body := `{
		"address": "Somewhere",
		"announcements": [],
		"downloadUrls": {
			"sdk2": "https://example.test/sdk2.unitypackage",
			"bootstrap": "https://example.test/pkg.unitypackage"
		},
		"serverName": "prod"
	}`

	resp, err := Decode[BootstrapConfig]([]byte(body), BootstrapConfigShape)
	require.NoError(t, err)
	assert.Equal(t, VariantSuccess, resp.Variant)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "https://example.test/pkg.unitypackage", resp.Value.DownloadURLs.Bootstrap)

	value, err := resp.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, resp.Value, value)
}

func TestDecode_NullErrorKeyIsSuccess(t *testing.T) {
	body := `{"error":null,"downloadUrls":{"bootstrap":"https://example.test/pkg.unitypackage"}}`

	resp, err := Decode[BootstrapConfig]([]byte(body), BootstrapConfigShape)
	require.NoError(t, err)
	assert.Equal(t, VariantSuccess, resp.Variant)
	assert.Equal(t, "https://example.test/pkg.unitypackage", resp.Value.DownloadURLs.Bootstrap)
}

func TestDecode_ErrorWinsOverSuccessFields(t *testing.T) {
	body := `{"error":{"message":"maintenance"},"downloadUrls":{"bootstrap":"https://example.test/pkg.unitypackage"}}`

	resp, err := Decode[BootstrapConfig]([]byte(body), BootstrapConfigShape)
	require.NoError(t, err)
	assert.Equal(t, VariantPlain, resp.Variant)
	assert.Empty(t, resp.Value.DownloadURLs.Bootstrap)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>503</html>`},
		{"empty", ``},
		{"null", `null`},
		{"array", `[{"downloadUrls":{"bootstrap":"https://example.test/pkg.unitypackage"}}]`},
		{"string", `"https://example.test/pkg.unitypackage"`},
		{"empty object", `{}`},
		{"downloadUrls not an object", `{"downloadUrls":"https://example.test/pkg.unitypackage"}`},
		{"bootstrap not a string", `{"downloadUrls":{"bootstrap":12}}`},
		{"error without message", `{"error":{"status_code":500}}`},
		{"error message not a string", `{"error":{"message":5,"waf_code":1}}`},
		{"error alongside config without message", `{"error":{},"downloadUrls":{"bootstrap":"https://example.test/pkg.unitypackage"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Decode[BootstrapConfig]([]byte(tt.body), BootstrapConfigShape)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, VariantUnknown, resp.Variant)
			assert.Empty(t, resp.Value.DownloadURLs.Bootstrap)

			_, err = resp.Unwrap()
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestDecode_WafCodeOutOfRangeFallsBackToPlain(t *testing.T) {
	body := `{"error":{"message":"x","waf_code":4294967296}}`

	resp, err := Decode[BootstrapConfig]([]byte(body), BootstrapConfigShape)
	require.NoError(t, err)
	assert.Equal(t, VariantPlain, resp.Variant)
	assert.Equal(t, "x", resp.Error.Message)
}

func TestVariantString(t *testing.T) {
	assert.Equal(t, "unknown", VariantUnknown.String())
	assert.Equal(t, "success", VariantSuccess.String())
	assert.Equal(t, "waf-blocked", VariantWafBlocked.String())
	assert.Equal(t, "plain-error", VariantPlain.String())
	assert.Equal(t, "variant(9)", Variant(9).String())
}
