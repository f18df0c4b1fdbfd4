package handlers

import (
	"fmt"
	"net/http"

	"city-samadhan/media"
	"city-samadhan/report"
	"city-samadhan/types"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type draftView struct {
	ID         string       `json:"id"`
	Draft      report.Draft `json:"draft"`
	Submitting bool         `json:"submitting"`
}

func viewOf(id string, c *report.Composer) draftView {
	return draftView{ID: id, Draft: c.Draft(), Submitting: c.Submitting()}
}

func (h *Handler) composer(c *gin.Context) (string, *report.Composer, bool) {
	id := c.Param("id")
	comp, err := h.Drafts.Get(currentUser(c).ID, id)
	if err != nil {
		h.respondError(c, err)
		return id, nil, false
	}
	return id, comp, true
}

// CreateDraft handles POST /api/drafts.
func (h *Handler) CreateDraft(c *gin.Context) {
	id, comp := h.Drafts.Create(currentUser(c).ID)
	c.JSON(http.StatusCreated, viewOf(id, comp))
}

// GetDraft handles GET /api/drafts/:id.
func (h *Handler) GetDraft(c *gin.Context) {
	id, comp, ok := h.composer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(id, comp))
}

type draftPatch struct {
	Title    *string `json:"title" validate:"omitempty,max=200"`
	Category *string `json:"category" validate:"omitempty,max=60"`
}

// UpdateDraft handles PATCH /api/drafts/:id.
func (h *Handler) UpdateDraft(c *gin.Context) {
	const op = "handlers.UpdateDraft"

	id, comp, ok := h.composer(c)
	if !ok {
		return
	}

	var patch draftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.badRequest(c, op, err)
		return
	}
	if err := h.validate.Struct(patch); err != nil {
		h.badRequest(c, op, err)
		return
	}

	if patch.Title != nil {
		if err := comp.SetTitle(*patch.Title); err != nil {
			h.respondError(c, err)
			return
		}
	}
	if patch.Category != nil {
		if err := comp.SetCategory(types.Category(*patch.Category)); err != nil {
			h.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, viewOf(id, comp))
}

// stageUpload stages the multipart "file" field as kind.
func (h *Handler) stageUpload(c *gin.Context, op string, kind media.Kind) (media.Asset, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, op, fmt.Errorf("multipart field \"file\": %w", err))
		return media.Asset{}, false
	}
	f, err := fh.Open()
	if err != nil {
		h.badRequest(c, op, err)
		return media.Asset{}, false
	}
	defer f.Close()

	asset, err := h.Stager.Stage(kind, fh.Filename, f)
	if err != nil {
		h.respondError(c, err)
		return media.Asset{}, false
	}
	return asset, true
}

// AddDraftImage handles POST /api/drafts/:id/images.
func (h *Handler) AddDraftImage(c *gin.Context) {
	id, comp, ok := h.composer(c)
	if !ok {
		return
	}
	asset, ok := h.stageUpload(c, "handlers.AddDraftImage", media.Image)
	if !ok {
		return
	}
	if err := comp.AddImage(asset); err != nil {
		h.Stager.Discard(asset)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(id, comp))
}

// RemoveDraftImage handles DELETE /api/drafts/:id/images/:assetId.
func (h *Handler) RemoveDraftImage(c *gin.Context) {
	id, comp, ok := h.composer(c)
	if !ok {
		return
	}
	if err := comp.RemoveImage(c.Param("assetId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(id, comp))
}

// SetDraftVoiceNote handles PUT /api/drafts/:id/voice.
func (h *Handler) SetDraftVoiceNote(c *gin.Context) {
	id, comp, ok := h.composer(c)
	if !ok {
		return
	}
	asset, ok := h.stageUpload(c, "handlers.SetDraftVoiceNote", media.Audio)
	if !ok {
		return
	}
	if err := comp.SetVoiceNote(asset); err != nil {
		h.Stager.Discard(asset)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(id, comp))
}

// ClearDraftVoiceNote handles DELETE /api/drafts/:id/voice.
func (h *Handler) ClearDraftVoiceNote(c *gin.Context) {
	id, comp, ok := h.composer(c)
	if !ok {
		return
	}
	if err := comp.ClearVoiceNote(); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(id, comp))
}

// SetDraftLocation handles PUT /api/drafts/:id/location. A denied permission
// or missing fix fails the request and leaves the draft's location unchanged.
func (h *Handler) SetDraftLocation(c *gin.Context) {
	id, comp, ok := h.composer(c)
	if !ok {
		return
	}
	req, ok := h.bindLocation(c, "handlers.SetDraftLocation")
	if !ok {
		return
	}

	loc, err := h.Locations.ResolveCurrentLocation(c.Request.Context(), req.device())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := comp.SetLocation(loc); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(id, comp))
}

// SubmitDraft handles POST /api/drafts/:id/submit.
func (h *Handler) SubmitDraft(c *gin.Context) {
	id, comp, ok := h.composer(c)
	if !ok {
		return
	}

	release, err := h.Guard.Acquire(c.Request.Context(), "draft:"+id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer release()

	reportID, err := comp.Submit(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Drafts.Forget(id)

	h.Log.WithFields(logrus.Fields{"draft_id": id, "report_id": reportID}).Info("Draft submitted")
	c.JSON(http.StatusCreated, gin.H{"id": reportID})
}

// DeleteDraft handles DELETE /api/drafts/:id.
func (h *Handler) DeleteDraft(c *gin.Context) {
	if err := h.Drafts.Delete(currentUser(c).ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
