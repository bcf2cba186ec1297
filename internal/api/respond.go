package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/listing"
	"github.com/Spok95/bqs/internal/logging"
	"github.com/Spok95/bqs/internal/observability"
	"github.com/Spok95/bqs/internal/workflow"
)

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: status >= 200 && status < 300, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Code: code, Message: message}})
}

// fail переводит ошибку сервиса в HTTP: вид ошибки -> код, наружу одно предложение.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, listing.ErrInvalidQuery) {
		respondError(w, http.StatusUnprocessableEntity, "validation", err.Error())
		return
	}

	kind := workflow.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case workflow.KindNotFound:
		status = http.StatusNotFound
	case workflow.KindConflict:
		status = http.StatusConflict
	case workflow.KindValidation:
		status = http.StatusUnprocessableEntity
	}

	log := logging.For(r.Context(), s.log)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		var wfErr *workflow.Error
		if !errors.As(err, &wfErr) {
			// ошибки хранилища движок уже отправил в Sentry сам
			observability.CaptureWith(err, map[string]string{"path": r.URL.Path})
		}
	} else {
		log.Info("request rejected", zap.String("kind", kind.String()), zap.Error(err))
	}
	respondError(w, status, kind.String(), workflow.Message(err))
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return &workflow.Error{Kind: workflow.KindValidation, Msg: "request body is not valid JSON", Err: err}
	}
	return nil
}
