package api

import (
	"errors"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"library-lending/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const codeBadRequest = "BAD_REQUEST"

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func ok(w http.ResponseWriter, data any)      { writeJSON(w, http.StatusOK, dataEnvelope{Data: data}) }
func created(w http.ResponseWriter, data any) { writeJSON(w, http.StatusCreated, dataEnvelope{Data: data}) }

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorEnvelope{Error: msg, Code: code})
}

// badRequest reports a malformed request that never reached the engine.
func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, codeBadRequest, msg)
}

func statusFor(kind library.Kind) int {
	switch kind {
	case library.KindUserNotFound, library.KindBookNotFound:
		return http.StatusNotFound
	case library.KindDuplicateUsername, library.KindUnavailable, library.KindNoSuchLoan:
		return http.StatusConflict
	case library.KindInvalidCredentials, library.KindNotSignedIn:
		return http.StatusUnauthorized
	case library.KindInvalidBook:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail maps an engine error onto the response. Internal causes are logged
// and never sent to the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := library.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		loggerFrom(r.Context()).ErrorContext(r.Context(), "api_server_error", slog.Any("error", err))
		writeError(w, status, string(library.KindInternal), "internal error")
		return
	}
	writeError(w, status, string(kind), err.Error())
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("request body is not valid JSON")
	}
	return nil
}
