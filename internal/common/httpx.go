package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status; untyped errors are logged and hidden behind a 500.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var he *HTTPError
	if errors.As(err, &he) {
		WriteJSON(w, he.Status, ErrorResponse{Detail: he.Detail})
		return
	}
	if logger != nil {
		logger.Error("unhandled error", zap.Error(err))
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "Internal server error"})
}

// DecodeJSON rejects bodies that are empty, malformed or carry trailing data.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return Unprocessable("request body is required")
		}
		return Unprocessable("invalid request body: %v", err)
	}
	if dec.More() {
		return Unprocessable("invalid request body: unexpected trailing data")
	}
	return nil
}

func QueryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func QueryFloat(r *http.Request, key string, def float64) float64 {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}
