package geocode

import (
	"context"
	"errors"
	"strings"
	"time"

	"city-samadhan/types"

	"github.com/sirupsen/logrus"
)

type Permission string

const (
	Granted Permission = "granted"
	Denied  Permission = "denied"
)

// ErrNoFix is returned by a Device that cannot produce a position.
var ErrNoFix = errors.New("no position fix")

// Device is the positioning capability of the client that is submitting.
type Device interface {
	RequestPermission(ctx context.Context) (Permission, error)
	CurrentPosition(ctx context.Context) (types.Position, error)
}

// ReportedDevice replays what the client reported about its own sensors.
type ReportedDevice struct {
	Permission Permission
	Position   *types.Position
}

func (d ReportedDevice) RequestPermission(ctx context.Context) (Permission, error) {
	if d.Permission == Granted {
		return Granted, nil
	}
	return Denied, nil
}

func (d ReportedDevice) CurrentPosition(ctx context.Context) (types.Position, error) {
	if d.Position == nil {
		return types.Position{}, ErrNoFix
	}
	return *d.Position, nil
}

type Resolver struct {
	geocoder ReverseGeocoder
	timeout  time.Duration
	log      logrus.FieldLogger
}

// NewResolver builds a Resolver. geocoder may be nil, in which case every address is "Unknown".
func NewResolver(geocoder ReverseGeocoder, timeout time.Duration, log logrus.FieldLogger) *Resolver {
	return &Resolver{geocoder: geocoder, timeout: timeout, log: log}
}

// ResolveCurrentLocation asks the device for permission and a fix, then
// reverse geocodes it. Denial and missing fixes are errors; there is no
// default coordinate.
func (r *Resolver) ResolveCurrentLocation(ctx context.Context, device Device) (*types.LocationRecord, error) {
	const op = "geocode.ResolveCurrentLocation"

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	perm, err := device.RequestPermission(ctx)
	if err != nil {
		return nil, types.E(types.KindPermissionDenied, op, err)
	}
	if perm != Granted {
		return nil, types.Errorf(types.KindPermissionDenied, op, "location permission %s", perm)
	}

	pos, err := device.CurrentPosition(ctx)
	if err != nil {
		return nil, types.E(types.KindPositionUnavailable, op, err)
	}
	if !pos.Valid() {
		return nil, types.Errorf(types.KindPositionUnavailable, op, "invalid coordinates %f,%f", pos.Latitude, pos.Longitude)
	}

	return &types.LocationRecord{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Address:   r.address(ctx, pos),
	}, nil
}

func (r *Resolver) address(ctx context.Context, pos types.Position) string {
	if r.geocoder == nil {
		return types.UnknownAddress
	}

	addr, err := r.geocoder.ReverseGeocode(ctx, pos)
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"latitude":  pos.Latitude,
			"longitude": pos.Longitude,
		}).Warn("Reverse geocoding failed, using unknown address")
		return types.UnknownAddress
	}
	return FormatAddress(addr)
}

// FormatAddress joins the non-empty name, street and city parts.
func FormatAddress(a Address) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Name, a.Street, a.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return types.UnknownAddress
	}
	return strings.Join(parts, ", ")
}
