package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-bankid-auth/loginapi"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypePNG  = "image/png"
	headerHintCode  = loginapi.HeaderHintCode
)

func writeJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a loginapi.ErrorResponse
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, loginapi.ErrorResponse{Message: message}, statusCode)
}

// writeStatus writes a bodiless response carrying the hint code, if any
func writeStatus(w http.ResponseWriter, hintCode string, statusCode int) {
	if hintCode != "" {
		w.Header().Set(headerHintCode, hintCode)
	}
	w.WriteHeader(statusCode)
}
