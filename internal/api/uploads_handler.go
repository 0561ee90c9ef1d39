package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/isquat/isquat/internal/auth"
	"github.com/isquat/isquat/internal/moderation"
	"github.com/isquat/isquat/internal/storage"
)

// maxDataURLLength caps the inline image accepted for moderation.
const maxDataURLLength = 4_300_000

// Moderator screens an uploaded image.
type Moderator interface {
	ModerateImage(ctx context.Context, dataURL, purpose string) moderation.Verdict
}

// uploadsHandler serves the two endpoints the browser calls around a direct
// upload: moderation first, then the signed policy.
type uploadsHandler struct {
	moderator Moderator
	signer    *storage.Signer
}

func newUploadsHandler(moderator Moderator, signer *storage.Signer) *uploadsHandler {
	return &uploadsHandler{moderator: moderator, signer: signer}
}

// ModerateImage handles POST /api/moderate-image. An unreadable body is
// treated as an empty one.
func (h *uploadsHandler) ModerateImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DataURL string `json:"dataUrl"`
		Context string `json:"context"`
	}
	_ = json.NewDecoder(io.LimitReader(r.Body, maxModerationBodySize)).Decode(&req)

	if !strings.HasPrefix(req.DataURL, "data:image/") {
		writeJSON(w, http.StatusBadRequest, moderation.Verdict{OK: false, Reason: "invalid_image_format"})
		return
	}
	if len(req.DataURL) > maxDataURLLength {
		writeJSON(w, http.StatusBadRequest, moderation.Verdict{OK: false, Reason: "image_too_large"})
		return
	}
	purpose := req.Context
	if purpose == "" {
		purpose = "upload"
	}

	verdict := h.moderator.ModerateImage(r.Context(), req.DataURL, purpose)
	if !verdict.OK {
		auditLog(r, "moderation_rejected", "image", purpose, "reason", verdict.Reason)
	}
	writeJSON(w, http.StatusOK, verdict)
}

type policyResponse struct {
	storage.Policy
	Key string `json:"key"`
	URL string `json:"url"`
}

// UploadPolicy handles POST /api/oss/policy.
func (h *uploadsHandler) UploadPolicy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prefix      string `json:"prefix"`
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
	}
	_ = readJSON(r, &req)

	if !storage.AllowedContentType(req.ContentType) {
		writeError(w, http.StatusBadRequest, "unsupported_file_type", "only jpeg, png, webp and gif images are accepted")
		return
	}
	if h.signer == nil {
		writeError(w, http.StatusServiceUnavailable, "oss_not_configured", storage.ErrNotConfigured.Error())
		return
	}
	filename := req.Filename
	if filename == "" {
		filename = "upload.jpg"
	}

	u := auth.UserFromContext(r.Context())
	key := storage.NewObjectKey(storage.NormalizePrefix(req.Prefix), u.ID, req.ContentType, filename)
	policy, err := h.signer.Policy(key, storage.DefaultContentPrefix)
	if err != nil {
		slog.Error("signing upload policy failed", "error", err)
		writeError(w, http.StatusBadGateway, "storage_error", "failed to sign upload policy")
		return
	}

	writeJSON(w, http.StatusOK, policyResponse{
		Policy: policy,
		Key:    key,
		URL:    h.signer.ObjectURL(key),
	})
}
