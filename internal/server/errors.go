package server

import (
	"net/http"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Hint      string `json:"hint,omitempty"`
}

const (
	hintRetry  = "The model service did not answer in time. Try again in a moment."
	hintConfig = "Check the server configuration: provider, model and API key."
)

// statusFor maps an error kind to its HTTP status and user hint.
func statusFor(kind legal.Kind) (int, string) {
	switch kind {
	case legal.KindTimeout:
		return http.StatusServiceUnavailable, hintRetry
	case legal.KindConfig:
		return http.StatusInternalServerError, hintConfig
	case legal.KindAuth:
		return http.StatusBadGateway, hintConfig
	case legal.KindExtraction:
		return http.StatusUnprocessableEntity, "Upload a text-based, unencrypted PDF."
	case legal.KindParse, legal.KindRequest:
		return http.StatusBadGateway, ""
	case legal.KindCancelled:
		return http.StatusRequestTimeout, ""
	}
	return http.StatusInternalServerError, ""
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := legal.KindOf(err)
	code, hint := statusFor(kind)
	body := ErrorBody{
		Kind:      string(kind),
		Message:   err.Error(),
		Retryable: legal.Retryable(err),
		Hint:      hint,
	}
	if kind == "" {
		body.Kind = "InternalError"
	}
	s.logger(r.Context()).Error("server.analyze.failed", "kind", body.Kind, "status", code, "error", err)
	if code == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, code, body)
}

func writeInputError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorBody{Kind: "InvalidInput", Message: msg})
}
