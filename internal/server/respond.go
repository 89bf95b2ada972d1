package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shouni/go-menu-kit/pkg/apiclient"
	"github.com/shouni/go-menu-kit/pkg/session"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// errorEnvelope はエラー応答の JSON 形式です。
type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"path", r.URL.Path,
			"code", code,
			"error", err,
			"request_id", chimw.GetReqID(r.Context()),
		)
	}
	writeJSON(w, status, errorEnvelope{Error: err.Error(), Code: code})
}

// writeScanError は解析エラーを種別に応じたステータスで返します。
// メッセージはセッションのエラーバナーと同じ文言です。
func writeScanError(w http.ResponseWriter, r *http.Request, err error) {
	msg := errors.New(apiclient.UserMessage(err))
	switch {
	case errors.Is(err, session.ErrStale):
		writeError(w, r, http.StatusConflict, "stale_session", err)
	case apiclient.IsKind(err, apiclient.KindValidation):
		writeError(w, r, http.StatusBadRequest, "invalid_image", msg)
	case apiclient.IsKind(err, apiclient.KindBackendRejected):
		writeError(w, r, http.StatusUnprocessableEntity, "analysis_rejected", msg)
	default:
		writeError(w, r, http.StatusBadGateway, "analysis_failed", msg)
	}
}
