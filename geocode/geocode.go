package geocode

import (
	"context"
	"fmt"

	"city-samadhan/types"

	"googlemaps.github.io/maps"
)

// Address holds the parts of a reverse-geocoded position that make up a display address.
type Address struct {
	Name   string
	Street string
	City   string
}

// ReverseGeocoder turns coordinates into address components.
// An empty Address with a nil error means the lookup found nothing.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, pos types.Position) (Address, error)
}

// MapsGeocoder reverse geocodes with the Google Maps Geocoding API.
type MapsGeocoder struct {
	client *maps.Client
}

// NewMapsClient creates a Maps client from an API key.
func NewMapsClient(apiKey string) (*maps.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("MAPS_CREDENTIALS environment variable not set")
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

func NewMapsGeocoder(client *maps.Client) *MapsGeocoder {
	return &MapsGeocoder{client: client}
}

// ReverseGeocode looks up the first result for pos.
func (g *MapsGeocoder) ReverseGeocode(ctx context.Context, pos types.Position) (Address, error) {
	req := &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: pos.Latitude, Lng: pos.Longitude},
	}

	results, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		return Address{}, fmt.Errorf("reverse geocode %f,%f: %w", pos.Latitude, pos.Longitude, err)
	}
	if len(results) == 0 {
		return Address{}, nil
	}

	return addressFromComponents(results[0].AddressComponents), nil
}

func addressFromComponents(components []maps.AddressComponent) Address {
	byType := make(map[string]string)
	for _, c := range components {
		for _, t := range c.Types {
			if _, seen := byType[t]; !seen {
				byType[t] = c.LongName
			}
		}
	}

	return Address{
		Name:   firstOf(byType, "premise", "point_of_interest", "establishment", "street_number"),
		Street: firstOf(byType, "route"),
		City:   firstOf(byType, "locality", "administrative_area_level_2"),
	}
}

func firstOf(byType map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := byType[k]; v != "" {
			return v
		}
	}
	return ""
}
