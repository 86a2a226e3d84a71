package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Place is a named location returned by the geo endpoints.
type Place struct {
	ID        string
	Name      string
	FullName  string
	PlaceType string
	Country   string
	Latitude  float64
	Longitude float64
}

type geoResponse struct {
	Result struct {
		Places []struct {
			ID        string    `json:"id"`
			Name      string    `json:"name"`
			FullName  string    `json:"full_name"`
			PlaceType string    `json:"place_type"`
			Country   string    `json:"country"`
			Centroid  []float64 `json:"centroid"`
		} `json:"places"`
	} `json:"result"`
}

// ReverseGeocode returns the places surrounding a coordinate, in the
// user's context. accuracy is a radius hint in meters; granularity is
// one of neighborhood, city, admin, country (empty for the API
// default); maxResults of zero lets the server pick.
func (c *Client) ReverseGeocode(ctx context.Context, lat, long, accuracy float64, granularity string, maxResults int) ([]Place, error) {
	query := url.Values{
		"lat":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"long": {strconv.FormatFloat(long, 'f', -1, 64)},
	}
	if accuracy > 0 {
		query.Set("accuracy", strconv.FormatFloat(accuracy, 'f', -1, 64)+"m")
	}
	if granularity != "" {
		query.Set("granularity", granularity)
	}
	if maxResults > 0 {
		query.Set("max_results", strconv.Itoa(maxResults))
	}

	body, err := c.GetUser(ctx, "geo/reverse_geocode.json", query)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding: %w", err)
	}

	return decodePlaces(body)
}

// SearchPlaces looks places up by free-form query near an optional
// coordinate, using app-only auth.
func (c *Client) SearchPlaces(ctx context.Context, search string, lat, long float64) ([]Place, error) {
	query := url.Values{"query": {search}}
	if lat != 0 || long != 0 {
		query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		query.Set("long", strconv.FormatFloat(long, 'f', -1, 64))
	}

	body, err := c.GetAppOnly(ctx, "geo/search.json", query)
	if err != nil {
		return nil, fmt.Errorf("searching places: %w", err)
	}

	return decodePlaces(body)
}

// decodePlaces is the typed decode step: a body that does not carry the
// expected shape fails with ErrDecode instead of yielding partially
// filled results.
func decodePlaces(body []byte) ([]Place, error) {
	var resp geoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	places := make([]Place, 0, len(resp.Result.Places))

	for _, p := range resp.Result.Places {
		if p.ID == "" || len(p.Centroid) != 2 {
			return nil, fmt.Errorf("%w: place entry missing id or centroid", ErrDecode)
		}

		places = append(places, Place{
			ID:        p.ID,
			Name:      p.Name,
			FullName:  p.FullName,
			PlaceType: p.PlaceType,
			Country:   p.Country,
			// Centroid is GeoJSON order: longitude first.
			Longitude: p.Centroid[0],
			Latitude:  p.Centroid[1],
		})
	}

	return places, nil
}
