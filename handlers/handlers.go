package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"city-samadhan/assistant"
	"city-samadhan/auth"
	"city-samadhan/feed"
	"city-samadhan/geocode"
	"city-samadhan/media"
	"city-samadhan/report"
	"city-samadhan/types"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ReportStore is the read side of report persistence plus voting.
type ReportStore interface {
	GetReport(ctx context.Context, id string) (types.Report, error)
	ListUserReports(ctx context.Context, userID string) ([]types.Report, error)
	ListRecentReports(ctx context.Context, category types.Category, limit int) ([]types.Report, error)
	Upvote(ctx context.Context, reportID, userID string) (int, bool, error)
}

type Stager interface {
	Stage(kind media.Kind, name string, r io.Reader) (media.Asset, error)
	Discard(assets ...media.Asset)
}

type LocationResolver interface {
	ResolveCurrentLocation(ctx context.Context, device geocode.Device) (*types.LocationRecord, error)
}

type FeedSubscriber interface {
	Subscribe(ctx context.Context, userID string, onUpdate func([]types.Report)) (*feed.Subscription, error)
}

type Answerer interface {
	Answer(ctx context.Context, query string) assistant.Reply
}

type Deps struct {
	Reports   ReportStore
	Drafts    *report.Registry
	Submitter report.DraftSubmitter
	Guard     report.Guard
	Stager    Stager
	Locations LocationResolver
	Feed      FeedSubscriber
	Assistant Answerer
	Log       logrus.FieldLogger
}

type Handler struct {
	Deps
	validate *validator.Validate
}

func New(deps Deps) *Handler {
	return &Handler{Deps: deps, validate: validator.New()}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Hello, welcome to City Samadhan!",
	})
}

// currentUser is only empty when a route was registered outside the auth group.
func currentUser(c *gin.Context) types.User {
	user, _ := auth.UserFromContext(c.Request.Context())
	return user
}

func statusFor(kind types.ErrorKind) int {
	switch kind {
	case types.KindValidation:
		return http.StatusBadRequest
	case types.KindAuth:
		return http.StatusUnauthorized
	case types.KindPermissionDenied:
		return http.StatusForbidden
	case types.KindPositionUnavailable:
		return http.StatusUnprocessableEntity
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindAlreadySubmitting:
		return http.StatusConflict
	case types.KindUpload:
		return http.StatusBadGateway
	case types.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError turns a classified error into the JSON error body.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := types.KindOf(err)
	status := statusFor(kind)

	body := gin.H{
		"error":   kind,
		"message": types.UserMessage(kind),
	}
	var e *types.Error
	if kind == types.KindValidation && errors.As(err, &e) && e.Msg != "" {
		body["details"] = e.Msg
	}

	entry := h.Log.WithError(err).WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"status": status,
		"kind":   kind,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	c.JSON(status, body)
}

func (h *Handler) badRequest(c *gin.Context, op string, err error) {
	h.respondError(c, types.E(types.KindValidation, op, err))
}
