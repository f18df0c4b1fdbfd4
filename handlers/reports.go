package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"city-samadhan/feed"
	"city-samadhan/grouping"
	"city-samadhan/media"
	"city-samadhan/nearby"
	"city-samadhan/report"
	"city-samadhan/types"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const nearbyScanLimit = 500

// SubmitReport handles POST /api/reports, the one-shot form of the draft
// flow: fields, location and media in a single multipart request.
func (h *Handler) SubmitReport(c *gin.Context) {
	const op = "handlers.SubmitReport"
	user := currentUser(c)

	// client keys are only unique per user
	key := "user:" + user.ID
	if k := c.GetHeader("Idempotency-Key"); k != "" {
		key += ":" + k
	}
	release, err := h.Guard.Acquire(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer release()

	form, err := c.MultipartForm()
	if err != nil {
		h.badRequest(c, op, fmt.Errorf("expected multipart form: %w", err))
		return
	}

	draft := report.Draft{
		Title:    c.PostForm("title"),
		Category: types.Category(c.PostForm("category")),
	}
	// validation runs again in Submit; checking the title here avoids
	// staging media and geocoding for a request that cannot succeed
	if strings.TrimSpace(draft.Title) == "" {
		h.respondError(c, types.Errorf(types.KindValidation, op, "title is required"))
		return
	}

	req, ok := h.bindLocation(c, op)
	if !ok {
		return
	}
	draft.Location, err = h.Locations.ResolveCurrentLocation(c.Request.Context(), req.device())
	if err != nil {
		h.respondError(c, err)
		return
	}

	images := form.File["images"]
	if len(images) > report.MaxImages {
		h.respondError(c, types.Errorf(types.KindValidation, op, "at most %d images per report", report.MaxImages))
		return
	}

	var staged []media.Asset
	defer func() { h.Stager.Discard(staged...) }()

	for _, fh := range images {
		asset, err := h.stageFile(fh, media.Image)
		if err != nil {
			h.respondError(c, err)
			return
		}
		staged = append(staged, asset)
		draft.Images = append(draft.Images, asset)
	}
	if voice := form.File["voiceNote"]; len(voice) > 0 {
		asset, err := h.stageFile(voice[0], media.Audio)
		if err != nil {
			h.respondError(c, err)
			return
		}
		staged = append(staged, asset)
		draft.VoiceNote = &asset
	}

	id, err := h.Submitter.Submit(c.Request.Context(), draft)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) stageFile(fh *multipart.FileHeader, kind media.Kind) (media.Asset, error) {
	f, err := fh.Open()
	if err != nil {
		return media.Asset{}, types.E(types.KindValidation, "handlers.stageFile", err)
	}
	defer f.Close()
	return h.Stager.Stage(kind, fh.Filename, f)
}

type reportList struct {
	Reports      []types.Report  `json:"reports"`
	Counts       grouping.Counts `json:"counts"`
	Tab          grouping.Tab    `json:"tab"`
	Unrecognized []string        `json:"unrecognized,omitempty"`
}

// listPayload counts over every report but lists only those under tab.
func (h *Handler) listPayload(userID string, reports []types.Report, tab grouping.Tab) reportList {
	feed.SortNewestFirst(reports)

	var unrecognized []string
	for _, r := range grouping.Unrecognized(reports) {
		unrecognized = append(unrecognized, r.ID)
		h.Log.WithFields(logrus.Fields{
			"user_id":   userID,
			"report_id": r.ID,
			"status":    r.Status,
		}).Warn("Report has unrecognized status")
	}

	filtered := grouping.FilterByTab(reports, tab)
	if filtered == nil {
		filtered = []types.Report{}
	}
	return reportList{
		Reports:      filtered,
		Counts:       grouping.GroupCounts(reports),
		Tab:          tab,
		Unrecognized: unrecognized,
	}
}

func tabParam(c *gin.Context) grouping.Tab {
	tab := grouping.Tab(c.Query("tab"))
	if tab == "" {
		return grouping.TabAll
	}
	return tab
}

// ListReports handles GET /api/reports?tab=.
func (h *Handler) ListReports(c *gin.Context) {
	user := currentUser(c)

	reports, err := h.Reports.ListUserReports(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.listPayload(user.ID, reports, tabParam(c)))
}

// GetReport handles GET /api/reports/:id.
func (h *Handler) GetReport(c *gin.Context) {
	r, err := h.Reports.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{
		"report":          r,
		"displayCategory": r.Category.Display(),
	}
	if !r.Status.Known() {
		h.Log.WithFields(logrus.Fields{"report_id": r.ID, "status": r.Status}).Warn("Report has unrecognized status")
		body["unrecognizedStatus"] = true
	}
	c.JSON(http.StatusOK, body)
}

type nearbyQuery struct {
	Latitude  float64 `form:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `form:"lng" validate:"gte=-180,lte=180"`
	RadiusKM  float64 `form:"radiusKm" validate:"gte=0,lte=50"`
	Category  string  `form:"category"`
}

// NearbyIssues handles GET /api/issues/nearby.
func (h *Handler) NearbyIssues(c *gin.Context) {
	const op = "handlers.NearbyIssues"

	if c.Query("lat") == "" || c.Query("lng") == "" {
		h.respondError(c, types.Errorf(types.KindValidation, op, "lat and lng are required"))
		return
	}
	var q nearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, op, err)
		return
	}
	if err := h.validate.Struct(q); err != nil {
		h.badRequest(c, op, err)
		return
	}
	if q.RadiusKM == 0 {
		q.RadiusKM = nearby.DefaultRadiusKM
	}

	var category types.Category
	if q.Category != "" {
		parsed, known := types.ParseCategory(q.Category)
		if !known {
			h.respondError(c, types.Errorf(types.KindValidation, op, "unknown category %q", q.Category))
			return
		}
		category = parsed
	}

	recent, err := h.Reports.ListRecentReports(c.Request.Context(), category, nearbyScanLimit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	results := nearby.Find(recent, types.Position{Latitude: q.Latitude, Longitude: q.Longitude}, q.RadiusKM)
	if results == nil {
		results = []nearby.Result{}
	}
	c.JSON(http.StatusOK, gin.H{
		"issues":   results,
		"radiusKm": q.RadiusKM,
		"count":    len(results),
	})
}

// UpvoteIssue handles POST /api/issues/:id/upvote.
func (h *Handler) UpvoteIssue(c *gin.Context) {
	user := currentUser(c)
	id := c.Param("id")

	count, added, err := h.Reports.Upvote(c.Request.Context(), id, user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      id,
		"upvotes": count,
		"counted": added,
	})
}
