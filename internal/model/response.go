package model

import "time"

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// ProfileFile is the Delta Sharing profile document returned when a key is
// issued. BearerToken carries the full `id:secret` credential; this is the
// only time the plaintext secret leaves the gateway.
type ProfileFile struct {
	ShareCredentialsVersion int        `json:"shareCredentialsVersion"`
	Endpoint                string     `json:"endpoint"`
	BearerToken             string     `json:"bearerToken"`
	ExpirationTime          *time.Time `json:"expirationTime,omitempty"`
}
