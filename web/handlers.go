package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"markestedt/datepaste/config"
	"markestedt/datepaste/stamp"
	"markestedt/datepaste/storage"
)

// MaxPasteText bounds text accepted by POST /api/paste
const MaxPasteText = 64 * 1024

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

type pasteRequest struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// handlePaste queues a paste. The response never says whether the paste
// happened: the request may be debounced and injection errors stay inside
// the agent.
func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	var req pasteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxPasteText+1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.Kind != "" && req.Text != "":
		writeError(w, http.StatusBadRequest, "set either kind or text, not both")
		return

	case req.Kind != "":
		kind, err := stamp.ParseKind(req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.dispatcher.PasteKind(SourceAPI, kind)

	case req.Text != "":
		if len(req.Text) > MaxPasteText || !utf8.ValidString(req.Text) {
			writeError(w, http.StatusBadRequest, "text must be valid UTF-8 of at most 64KiB")
			return
		}
		s.dispatcher.PasteText(SourceAPI, req.Text)

	default:
		writeError(w, http.StatusBadRequest, "kind or text is required")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Status())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	tz := s.renderer.Timezone()
	writeJSON(w, http.StatusOK, map[string]any{
		"values":   s.renderer.Preview(),
		"timezone": tz,
	})
}

type shortcuts struct {
	CopyDate     string `json:"copyDate"`
	CopyTime     string `json:"copyTime"`
	CopyDateTime string `json:"copyDateTime"`
}

type settingsResponse struct {
	stamp.Selection
	Shortcuts shortcuts `json:"shortcuts"`
	AutoStart bool      `json:"autoStart"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	cfg := s.config
	resp := settingsResponse{
		Selection: cfg.Format.Selection(),
		Shortcuts: shortcuts{
			CopyDate:     cfg.Hotkeys.CopyDate,
			CopyTime:     cfg.Hotkeys.CopyTime,
			CopyDateTime: cfg.Hotkeys.CopyDateTime,
		},
		AutoStart: cfg.General.Autostart,
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

type settingsRequest struct {
	DateFormatID     *string    `json:"dateFormatId"`
	TimeFormatID     *string    `json:"timeFormatId"`
	DatetimeFormatID *string    `json:"datetimeFormatId"`
	TimezoneID       *string    `json:"timezoneId"`
	Shortcuts        *shortcuts `json:"shortcuts"`
	AutoStart        *bool      `json:"autoStart"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sel := s.renderer.Selection()
	catalog := s.renderer.Catalog()
	for kind, id := range map[stamp.Kind]*string{
		stamp.KindDate:     req.DateFormatID,
		stamp.KindTime:     req.TimeFormatID,
		stamp.KindDateTime: req.DatetimeFormatID,
	} {
		if id == nil {
			continue
		}
		f, err := catalog.Lookup(*id)
		if err != nil || f.Kind != kind {
			writeError(w, http.StatusBadRequest, "unknown "+string(kind)+" format: "+*id)
			return
		}
		switch kind {
		case stamp.KindDate:
			sel.Date = *id
		case stamp.KindTime:
			sel.Time = *id
		case stamp.KindDateTime:
			sel.DateTime = *id
		}
	}
	if req.TimezoneID != nil {
		if _, ok := stamp.LookupTimezone(*req.TimezoneID); !ok {
			writeError(w, http.StatusBadRequest, "unknown timezone: "+*req.TimezoneID)
			return
		}
		sel.TimezoneID = *req.TimezoneID
	}
	if req.Shortcuts != nil {
		for _, combo := range []string{req.Shortcuts.CopyDate, req.Shortcuts.CopyTime, req.Shortcuts.CopyDateTime} {
			if combo == "" {
				continue
			}
			if _, err := config.ParseHotkey(combo); err != nil {
				writeError(w, http.StatusBadRequest, "invalid shortcut "+combo+": "+err.Error())
				return
			}
		}
	}

	s.mu.Lock()
	cfg := s.config
	restart := false
	cfg.Format.SetSelection(sel)
	if req.Shortcuts != nil {
		next := cfg.Hotkeys
		if req.Shortcuts.CopyDate != "" {
			next.CopyDate = req.Shortcuts.CopyDate
		}
		if req.Shortcuts.CopyTime != "" {
			next.CopyTime = req.Shortcuts.CopyTime
		}
		if req.Shortcuts.CopyDateTime != "" {
			next.CopyDateTime = req.Shortcuts.CopyDateTime
		}
		restart = next != cfg.Hotkeys
		cfg.Hotkeys = next
	}
	if req.AutoStart != nil {
		cfg.General.Autostart = *req.AutoStart
	}
	err := cfg.Save()
	s.mu.Unlock()

	if err != nil {
		slog.Error("Failed to save config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save configuration")
		return
	}

	s.renderer.Select(sel)
	s.broadcast(Message{Type: MessageTypeSettings, Data: sel})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"restartRequired": restart,
	})
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	catalog := s.renderer.Catalog()

	formats := catalog.All()
	if kindStr := r.URL.Query().Get("type"); kindStr != "" {
		kind, err := stamp.ParseKind(kindStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		formats = catalog.ByKind(kind)
	}
	writeJSON(w, http.StatusOK, formats)
}

type addFormatRequest struct {
	Label  string `json:"label"`
	Format string `json:"format"`
	Type   string `json:"type"`
}

func (s *Server) handleAddFormat(w http.ResponseWriter, r *http.Request) {
	var req addFormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := stamp.ParseKind(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := s.renderer.Catalog().Add(req.Label, req.Format, kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.persistCustomFormats(); err != nil {
		slog.Error("Failed to save custom formats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save configuration")
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleDeleteFormat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	catalog := s.renderer.Catalog()

	f, lookupErr := catalog.Lookup(id)
	if err := catalog.Remove(id); err != nil {
		if errors.Is(err, stamp.ErrUnknownFormat) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	// A deleted format that was selected falls back to the kind's default.
	if lookupErr == nil {
		sel := s.renderer.Selection()
		if sel.FormatID(f.Kind) == id {
			fallback := catalog.Resolve(f.Kind, id)
			switch f.Kind {
			case stamp.KindDate:
				sel.Date = fallback.ID
			case stamp.KindTime:
				sel.Time = fallback.ID
			case stamp.KindDateTime:
				sel.DateTime = fallback.ID
			}
			s.renderer.Select(sel)
			s.broadcast(Message{Type: MessageTypeSettings, Data: sel})
		}
	}

	if err := s.persistCustomFormats(); err != nil {
		slog.Error("Failed to save custom formats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save configuration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// persistCustomFormats saves the catalog's custom formats together with the
// current selection, which must only name formats that exist.
func (s *Server) persistCustomFormats() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Format.Custom = s.renderer.Catalog().Custom()
	s.config.Format.SetSelection(s.renderer.Selection())
	return s.config.Save()
}

type timezoneResponse struct {
	stamp.Timezone
	CurrentOffset float64 `json:"currentOffset"`
	Selected      bool    `json:"selected"`
}

func (s *Server) handleTimezones(w http.ResponseWriter, r *http.Request) {
	selected := s.renderer.Timezone().ID
	now := timeNow()

	out := make([]timezoneResponse, 0, len(stamp.Timezones))
	for _, tz := range stamp.Timezones {
		out = append(out, timezoneResponse{
			Timezone:      tz,
			CurrentOffset: tz.CurrentOffset(now),
			Selected:      tz.ID == selected,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, name string, def, min int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= min {
			return n
		}
	}
	return def
}

// HistoryPage is the body of GET /api/history
type HistoryPage struct {
	Pastes []storage.Paste `json:"pastes"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 1)
	offset := queryInt(r, "offset", 0, 0)

	pastes, err := s.db.GetPastes(limit, offset)
	if err != nil {
		slog.Error("Failed to get pastes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}

	total, err := s.db.GetPasteCount()
	if err != nil {
		slog.Error("Failed to get paste count", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}

	if pastes == nil {
		pastes = []storage.Paste{}
	}
	writeJSON(w, http.StatusOK, HistoryPage{Pastes: pastes, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.db.DeletePaste(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "paste not found")
			return
		}
		slog.Error("Failed to delete paste", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete paste")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	n, err := s.db.ClearPastes()
	if err != nil {
		slog.Error("Failed to clear history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7, 1)

	overall, err := s.db.GetOverallStats(days)
	if err != nil {
		slog.Error("Failed to get overall stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get statistics")
		return
	}

	daily, err := s.db.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get statistics")
		return
	}

	kinds, err := s.db.GetKindStats(days)
	if err != nil {
		slog.Error("Failed to get kind stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get statistics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"overall": overall,
		"daily":   daily,
		"kinds":   kinds,
	})
}
