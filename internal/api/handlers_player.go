package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

func (h *Handlers) getPlayer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

// togglePlayer returns the state right after the toggle. A play attempt
// reports "loading"; the outcome arrives on /api/subscribe.
func (h *Handlers) togglePlayer(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Toggle()
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) pausePlayer(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Pause()
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

// getPlayerCard renders the current state as the front-panel PNG.
func (h *Handlers) getPlayerCard(w http.ResponseWriter, r *http.Request) {
	card := h.card
	if card.Station == "" && h.info != nil {
		card.Station = h.info().StationName
	}
	var buf bytes.Buffer
	if err := card.WritePNG(&buf, h.ctrl.State()); err != nil {
		writeError(w, models.ErrInternal("render card: "+err.Error()))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
