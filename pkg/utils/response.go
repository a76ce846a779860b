package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"healthwatch/pkg/apperror"

	"github.com/rs/zerolog/log"
)

// Envelope is the body of every status API response. Exactly one of Data and
// Error is set; the HTTP status tells them apart.
type Envelope[T any] struct {
	RequestID string     `json:"request_id"`
	Message   string     `json:"message,omitempty"`
	Data      T          `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind    apperror.Kind `json:"kind"`
	Message string        `json:"message,omitempty"`
}

func WriteJSON[T any](w http.ResponseWriter, status int, reqID string, message string, data T) {
	encode(w, status, Envelope[T]{
		RequestID: reqID,
		Message:   message,
		Data:      data,
	})
}

// FromAppError writes err using its Kind. Anything that is not an
// *apperror.Error is reported as internal without details.
func FromAppError(w http.ResponseWriter, reqID string, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		WriteError(w, http.StatusInternalServerError, reqID, apperror.Internal, "internal server error")
		return
	}

	WriteError(w, apperror.HTTPStatus(appErr), reqID, appErr.Kind, appErr.Message)
}

func WriteError(w http.ResponseWriter, status int, reqID string, kind apperror.Kind, message string) {
	encode(w, status, Envelope[any]{
		RequestID: reqID,
		Error:     &ErrorBody{Kind: kind, Message: message},
	})
}

func encode[T any](w http.ResponseWriter, status int, body Envelope[T]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Str("request_id", body.RequestID).Int("status", status).Msg("failed to encode response")
	}
}
