// internal/handlers/api.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/jason-s-yu/codenames/internal/game"
)

// qrSize is the edge length in pixels of the join QR code.
const qrSize = 320

// gameSummary is one entry of the match listing.
type gameSummary struct {
	Code     string     `json:"code"`
	Phase    game.Phase `json:"phase"`
	Players  int        `json:"players"`
	Round    int        `json:"round"`
	Language string     `json:"language"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "codenames v%s", s.Version)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	matches := s.Games.Matches()
	out := make([]gameSummary, 0, len(matches))
	for _, m := range matches {
		m.Mu.Lock()
		out = append(out, gameSummary{
			Code:     m.ID,
			Phase:    m.Phase,
			Players:  len(m.Players),
			Round:    m.Round,
			Language: m.Language,
		})
		m.Mu.Unlock()
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m, err := s.Games.Get(ps.ByName("code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := snapshot(m)
	if err != nil {
		s.Logger.WithField("match", m.ID).WithError(err).Error("failed to marshal snapshot")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(snap)
}

// handleQR renders a PNG QR code pointing at the join URL of a match.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m, err := s.Games.Get(ps.ByName("code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	png, err := qrcode.Encode(joinURL(r, m.ID), qrcode.Medium, qrSize)
	if err != nil {
		s.Logger.WithField("match", m.ID).WithError(err).Error("failed to render QR code")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// joinURL is the address a phone should open to join code.
func joinURL(r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: "/", RawQuery: url.Values{"game": {code}}.Encode()}
	return u.String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.WithError(err).Warn("failed to write JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrMatchNotFound), errors.Is(err, game.ErrInvalidCode):
		http.Error(w, "game not found", http.StatusNotFound)
	default:
		s.Logger.WithError(err).Error("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
