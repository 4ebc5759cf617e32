package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/camden-git/echobackend/database"
	"github.com/camden-git/echobackend/media"
	"github.com/camden-git/echobackend/models"
	"github.com/camden-git/echobackend/repository"
	"github.com/camden-git/echobackend/services"
	"github.com/camden-git/echobackend/workers"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	queueFullMessage = "processing queue is full"
)

// CheckinQueue accepts check-ins for background processing
type CheckinQueue interface {
	QueueJob(job workers.CheckinJob) bool
}

type CheckinHandler struct {
	Entries repository.EntryRepository
	Queue   CheckinQueue
	Now     func() time.Time
}

type CheckinRequest struct {
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"` // object key returned by the upload endpoint
	Timezone  string `json:"timezone,omitempty"`
}

type CheckinAcceptedResponse struct {
	EntryID string `json:"entry_id"`
	Status  string `json:"status"`
}

type CheckinStatusResponse struct {
	EntryID string            `json:"entry_id"`
	Status  string            `json:"status"`
	Result  *models.MoodEntry `json:"result"`
}

func (h *CheckinHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// SubmitCheckin creates a processing entry and queues it. Responds 202 without waiting.
func (h *CheckinHandler) SubmitCheckin(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		return
	}

	var payload CheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request payload")
		return
	}
	if !media.IsValidMediaType(payload.MediaType) {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "media_type must be 'image' or 'video'")
		return
	}
	// keys are only ever issued under the caller's own prefix
	if !strings.HasPrefix(payload.MediaURL, "uploads/"+userID+"/") {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "media_url must reference one of your uploads")
		return
	}

	var loc *time.Location
	if payload.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(payload.Timezone)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Unknown timezone: "+payload.Timezone)
			return
		}
	}

	entry := &models.MoodEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		MediaType: payload.MediaType,
		MediaKey:  payload.MediaURL,
	}
	if err := h.Entries.Create(entry); err != nil {
		log.WithError(err).Error("failed to create mood entry")
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to create entry")
		return
	}

	job := workers.CheckinJob{Request: services.ProcessRequest{
		EntryID:   entry.ID,
		MediaKey:  entry.MediaKey,
		MediaType: entry.MediaType,
		Context:   services.NewCheckinContext(h.now(), loc, entry.MediaType, userID),
	}}
	if !h.Queue.QueueJob(job) {
		if _, err := h.Entries.MarkFailed(entry.ID, queueFullMessage); err != nil {
			log.WithError(err).WithField("entry_id", entry.ID).Error("failed to mark rejected entry failed")
		}
		WriteAPIError(w, http.StatusServiceUnavailable, CodeQueueFull, "Check-in could not be queued, try again shortly")
		return
	}

	writeJSON(w, http.StatusAccepted, CheckinAcceptedResponse{EntryID: entry.ID, Status: database.StatusProcessing})
}

// GetCheckinStatus returns the entry's status, plus the entry itself once complete
func (h *CheckinHandler) GetCheckinStatus(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.ownedEntry(w, r)
	if !ok {
		return
	}
	resp := CheckinStatusResponse{EntryID: entry.ID, Status: entry.Status}
	if entry.Status == database.StatusComplete {
		resp.Result = entry
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CheckinHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.ownedEntry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ListEntries returns the caller's entries, newest first
func (h *CheckinHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		return
	}

	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit < 1 || limit > maxListLimit {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "limit must be between 1 and 100")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "offset must be zero or greater")
		return
	}

	entries, err := h.Entries.ListByUser(userID, limit, offset)
	if err != nil {
		log.WithError(err).Error("failed to list mood entries")
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to list entries")
		return
	}
	if entries == nil {
		entries = []models.MoodEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ownedEntry loads the {entry_id} entry. Entries of other users are reported as missing.
func (h *CheckinHandler) ownedEntry(w http.ResponseWriter, r *http.Request) (*models.MoodEntry, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		return nil, false
	}

	entryID := chi.URLParam(r, "entry_id")
	if _, err := uuid.Parse(entryID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid entry ID")
		return nil, false
	}

	entry, err := h.Entries.GetByID(entryID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			WriteAPIError(w, http.StatusNotFound, CodeNotFound, "Entry not found")
			return nil, false
		}
		log.WithError(err).WithField("entry_id", entryID).Error("failed to load mood entry")
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to load entry")
		return nil, false
	}
	if entry.UserID != userID {
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, "Entry not found")
		return nil, false
	}
	return entry, true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
