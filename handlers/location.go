package handlers

import (
	"net/http"

	"city-samadhan/geocode"
	"city-samadhan/types"

	"github.com/gin-gonic/gin"
)

// locationRequest is what the client reports about its positioning: the
// permission outcome and, when it got one, a fix. A fix needs both coordinates.
type locationRequest struct {
	Permission string   `json:"permission" form:"permission" validate:"required,oneof=granted denied"`
	Latitude   *float64 `json:"latitude" form:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude  *float64 `json:"longitude" form:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

func (r locationRequest) device() geocode.ReportedDevice {
	d := geocode.ReportedDevice{Permission: geocode.Permission(r.Permission)}
	if r.Latitude != nil && r.Longitude != nil {
		d.Position = &types.Position{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return d
}

func (h *Handler) bindLocation(c *gin.Context, op string) (locationRequest, bool) {
	var req locationRequest
	if err := c.ShouldBind(&req); err != nil {
		h.badRequest(c, op, err)
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(c, op, err)
		return req, false
	}
	return req, true
}

// ResolveLocation handles POST /api/location/resolve.
func (h *Handler) ResolveLocation(c *gin.Context) {
	req, ok := h.bindLocation(c, "handlers.ResolveLocation")
	if !ok {
		return
	}

	loc, err := h.Locations.ResolveCurrentLocation(c.Request.Context(), req.device())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}
