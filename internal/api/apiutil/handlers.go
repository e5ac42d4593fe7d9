package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/api/authz"
	"github.com/codr1/courtbook/internal/apperr"
)

const maxBodyBytes = 1 << 20

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// DecodeAndValidate decodes a JSON body into dst and runs its validate tags.
// Failures come back as apperr validation errors.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := DecodeJSON(r, dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if fe := ValidateStruct(dst); fe != nil {
		return apperr.Validation(fe.Error())
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindSlotUnavailable, apperr.KindInvalidState:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as {code, message}. Internal errors are logged with
// their cause and reported with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal("unexpected error", err)
	}
	status := StatusFor(appErr.Kind)

	body := ErrorBody{Code: appErr.Code, Message: appErr.Message}
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error().Err(err).Str("code", appErr.Code).Msg("Request failed")
		if appErr.Kind == apperr.KindInternal {
			body.Message = "Internal server error"
		}
	default:
		logger.Debug().Err(err).Str("code", appErr.Code).Int("status", status).Msg("Request rejected")
	}
	if body.Code == "" {
		body.Code = appErr.Kind.String()
	}

	if writeErr := WriteJSON(w, status, body); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

// RequireUser returns the authenticated caller, or writes a 401 and returns nil.
func RequireUser(w http.ResponseWriter, r *http.Request) *authz.AuthUser {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		WriteError(w, r, apperr.Unauthenticated("Authentication required"))
		return nil
	}
	return user
}

// PathID parses a positive int64 path value such as {id}.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := ParsePositiveInt64Field(strings.TrimSpace(r.PathValue(name)), name)
	if err != nil {
		return 0, apperr.Validation(err.Error())
	}
	return id, nil
}
