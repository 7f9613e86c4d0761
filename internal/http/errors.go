package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Códigos de aplicación de la taxonomía de errores.
const (
	CodeUnauthorized    = 1001 // credenciales/token inválidos, rotación fallida
	CodeValidation      = 1002 // input malformado
	CodeLocked          = 1003 // cuenta bloqueada temporalmente
	CodeRestricted      = 1004 // cuenta restringida (sticky)
	CodeTooManyAttempts = 1005 // throttled
	CodeInternal        = 1500 // precondición fatal (p.ej. usuario sin rol)
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorCode        int    `json:"error_code,omitempty"`
	RetryAfterSec    int    `json:"retryAfterSec,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, desc string, errCode int) {
	writeErr(w, status, apiError{Error: code, ErrorDescription: desc, ErrorCode: errCode})
}

// WriteThrottled responde 429 con retryAfterSec en el body (el header
// Retry-After lo setea el rate limiter).
func WriteThrottled(w http.ResponseWriter, retryAfterSec int) {
	writeErr(w, http.StatusTooManyRequests, apiError{
		Error:            "too_many_attempts",
		ErrorDescription: "demasiados intentos, probá más tarde",
		ErrorCode:        CodeTooManyAttempts,
		RetryAfterSec:    retryAfterSec,
	})
}

func writeErr(w http.ResponseWriter, status int, body apiError) {
	body.RequestID = w.Header().Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica el body de forma tolerante (no falla por campos
// desconocidos). Valida Content-Type y limita el body a 1MB.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusUnprocessableEntity, "validation", "Content-Type debe ser application/json", CodeValidation)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusUnprocessableEntity, "validation", "json inválido", CodeValidation)
		return false
	}
	return true
}
