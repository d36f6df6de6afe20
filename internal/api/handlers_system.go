package api

import (
	"net/http"
	"time"

	"github.com/worldwidefm/wwfm-live/internal/identity"
	"github.com/worldwidefm/wwfm-live/internal/models"
)

// liveShowResponse is the body of GET /api/schedule/live.
type liveShowResponse struct {
	Show      models.Show `json:"show"`
	OnAir     bool        `json:"on_air"`
	CheckedAt time.Time   `json:"checked_at"`
}

func (h *Handlers) getLiveShow(w http.ResponseWriter, r *http.Request) {
	if h.schedule == nil {
		writeError(w, models.ErrNotFound("schedule lookup is not configured"))
		return
	}
	show, at := h.schedule.Current()
	if at.IsZero() {
		writeError(w, models.ErrUnavailable("schedule not known yet"))
		return
	}
	writeJSON(w, http.StatusOK, liveShowResponse{Show: show, OnAir: show.OnAir(), CheckedAt: at})
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	if h.info != nil {
		writeJSON(w, http.StatusOK, h.info())
		return
	}
	writeJSON(w, http.StatusOK, models.Info{
		Version:  identity.DefaultVersion,
		Hostname: identity.GetHostname(),
	})
}

// createBackup archives the config directory now and returns the file path.
func (h *Handlers) createBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, models.ErrNotFound("backups are not configured"))
		return
	}
	file, err := h.backups.RunBackupNow()
	if err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": file})
}

// listBackups returns the backup archives on disk.
func (h *Handlers) listBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, models.ErrNotFound("backups are not configured"))
		return
	}
	files, err := h.backups.ListBackups()
	if err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"backups": files})
}
