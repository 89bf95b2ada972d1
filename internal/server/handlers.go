package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shouni/go-menu-kit/pkg/apiclient"
	"github.com/shouni/go-menu-kit/pkg/assistant"
	"github.com/shouni/go-menu-kit/pkg/currency"
	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/filter"
	"github.com/shouni/go-menu-kit/pkg/runner"
	"github.com/shouni/go-menu-kit/pkg/session"
	"github.com/shouni/go-menu-kit/pkg/settings"

	"github.com/go-chi/chi/v5"
)

type dishesResponse struct {
	Dishes      domain.Dishes `json:"dishes"`
	Total       int           `json:"total"`
	DietaryTags []string      `json:"dietary_tags"`
}

type chatRequest struct {
	Message string             `json:"message"`
	History domain.ChatHistory `json:"history"`
	Direct  *bool              `json:"direct,omitempty"`
	Mode    string             `json:"mode,omitempty"`
}

type chatResponse struct {
	Reply   string             `json:"reply"`
	History domain.ChatHistory `json:"history"`
}

type convertResponse struct {
	Price     string `json:"price"`
	From      string `json:"from"`
	To        string `json:"to"`
	Converted string `json:"converted,omitempty"`
	OK        bool   `json:"ok"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":      "ok",
		"generation":  s.wf.Store().Generation(),
		"direct_chat": s.wf.HasDirectChat(),
	}
	if r.URL.Query().Get("backend") == "1" {
		hs, err := s.wf.Client().Health(r.Context())
		if err != nil {
			body["backend"] = map[string]string{"status": "unreachable", "error": apiclient.UserMessage(err)}
		} else {
			body["backend"] = hs
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	publishRunner, err := s.wf.BuildPublishRunner()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", err)
		return
	}

	q := r.URL.Query()
	dishes := s.wf.Store().Filtered(filter.Parse(q.Get("diet"), q.Get("q")))
	page, err := publishRunner.RenderHTML(dishes, q.Get("currency"))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.wf.Store().Snapshot())
}

func (s *Server) handleDishes(w http.ResponseWriter, r *http.Request) {
	all := s.wf.Store().Dishes()
	q := r.URL.Query()
	matched := filter.Parse(q.Get("diet"), q.Get("q")).Apply(all)
	if matched == nil {
		matched = domain.Dishes{}
	}
	writeJSON(w, http.StatusOK, dishesResponse{
		Dishes:      matched,
		Total:       len(all),
		DietaryTags: filter.AvailableDietaryTags(all),
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_name", err)
		return
	}
	dish, err := s.wf.Store().Select(name)
	if errors.Is(err, session.ErrDishNotFound) {
		writeError(w, r, http.StatusNotFound, "dish_not_found", err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, dish)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing_file", errors.New("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_upload", err)
		return
	}

	full, _ := strconv.ParseBool(r.FormValue("full"))
	in := runner.ScanInput{
		Image:          data,
		FileName:       header.Filename,
		TargetLanguage: r.FormValue("target_language"),
		SourceCurrency: r.FormValue("source_currency"),
		Full:           full,
	}

	scanRunner, err := s.wf.BuildScanRunner()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", err)
		return
	}

	s.stopImages()
	res, err := scanRunner.Run(r.Context(), in)
	if err != nil {
		writeScanError(w, r, err)
		return
	}

	if !in.Full && len(res.Dishes) > 0 {
		if err := s.startImages(res.Generation, res.Dishes); err != nil {
			slog.ErrorContext(r.Context(), "Failed to start image phase", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, s.wf.Store().Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.stopImages()
	s.wf.Store().Reset()
	writeJSON(w, http.StatusOK, s.wf.Store().Snapshot())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err)
		return
	}

	direct := s.opts.DirectChat
	if req.Direct != nil {
		direct = *req.Direct
	}
	chatRunner, err := s.wf.BuildChatRunner(direct, req.Mode)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "chat_unavailable", err)
		return
	}

	reply, history, err := chatRunner.Run(r.Context(), req.Message, s.wf.Store().Dishes(), req.History)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		writeError(w, r, http.StatusBadRequest, "empty_message", err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "chat_failed", errors.New(apiclient.UserMessage(err)))
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply, History: history})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := convertResponse{Price: q.Get("price"), From: q.Get("from"), To: q.Get("to")}
	res.Converted, res.OK = currency.Convert(domain.Price(res.Price), res.From, res.To)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCurrencies(w http.ResponseWriter, _ *http.Request) {
	codes := currency.Available()
	out := make([]map[string]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, map[string]string{"code": c, "symbol": currency.Symbol(c)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.wf.Client().Settings().Masked())
}

// handlePutSettings はキーと値の組で設定を部分更新します。空文字の値は未設定に戻します。
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err)
		return
	}

	st := s.wf.Client().Settings()
	for k, v := range fields {
		if err := st.Set(k, v); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_settings", err)
			return
		}
	}

	if s.settings != nil {
		if err := s.settings.Save(st); err != nil {
			writeError(w, r, http.StatusInternalServerError, "save_failed", err)
			return
		}
	}
	if err := s.wf.UpdateSettings(st); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_settings", err)
		return
	}
	writeJSON(w, http.StatusOK, st.Masked())
}

func (s *Server) handleDeleteSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings != nil {
		if err := s.settings.Clear(); err != nil {
			writeError(w, r, http.StatusInternalServerError, "save_failed", err)
			return
		}
	}
	var empty settings.Settings
	if err := s.wf.UpdateSettings(empty); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, empty.Masked())
}
