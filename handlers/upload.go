package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/camden-git/echobackend/media"
)

type UploadHandler struct {
	Store  media.Store // nil when object storage is not configured
	Expiry time.Duration
}

type UploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

type UploadResponse struct {
	PresignedURL string `json:"presigned_url"`
	S3Key        string `json:"s3_key"`
}

// CreateUploadURL validates the intended upload and returns a presigned PUT for it
func (h *UploadHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		return
	}
	if h.Store == nil {
		WriteAPIError(w, http.StatusServiceUnavailable, CodeUnavailable, "Object storage not configured")
		return
	}

	var payload UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request payload")
		return
	}
	if err := media.ValidateUpload(payload.FileName, payload.ContentType, payload.FileSize); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	key, err := media.BuildUploadKey(userID, payload.ContentType)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	url, err := h.Store.PresignPut(r.Context(), key, payload.ContentType, h.Expiry)
	if err != nil {
		log.WithError(err).WithField("key", key).Error("failed to presign upload")
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to create upload URL")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{PresignedURL: url, S3Key: key})
}
