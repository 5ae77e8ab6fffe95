package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/geom"
	"duty-route-service/internal/platform/obs"
)

// ORSRouteProvider resolves point-to-point legs against an
// OpenRouteService-compatible directions endpoint: one request per
// (origin, destination) pair, with retry/backoff on transient failures.
//
// The provider is safe for concurrent use.
type ORSRouteProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string
}

func NewORSRouteProvider(apiKey string) (*ORSRouteProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	provider := &ORSRouteProvider{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://api.openrouteservice.org",
		profile: "driving-car",
	}

	return provider, nil
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// directionsResponse is the GeoJSON shape of the directions endpoint: one
// feature per returned route, its LineString geometry in [lon, lat] pairs
// and the totals in the summary property.
type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// Route fetches the driving leg between two coordinates.
func (o *ORSRouteProvider) Route(
	ctx context.Context,
	origin domain.Coordinates,
	dest domain.Coordinates,
) (_ domain.Leg, err error) {
	defer obs.Time(ctx, "ors.Route")(&err)

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", o.baseURL, o.profile)

	payload, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{origin.CoordsToList(), dest.CoordsToList()},
	})
	if err != nil {
		return domain.Leg{}, fmt.Errorf("marshal directions request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		body := bytes.NewReader(payload)
		return o.newRequest(ctx, http.MethodPost, endpoint, body)
	})
	if err != nil {
		return domain.Leg{}, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return domain.Leg{}, fmt.Errorf("decode directions response: %w", err)
	}

	if len(dr.Features) == 0 {
		return domain.Leg{}, errors.New("directions response has no routes")
	}

	feature := dr.Features[0]
	line := make([]geom.Point, 0, len(feature.Geometry.Coordinates))
	for _, pair := range feature.Geometry.Coordinates {
		if len(pair) < 2 {
			return domain.Leg{}, fmt.Errorf("directions geometry has a %d-element vertex", len(pair))
		}
		line = append(line, geom.Point{Lon: pair[0], Lat: pair[1]})
	}

	// ORS returns float metrics; round to nearest integer for domain consistency.
	return domain.Leg{
		Polyline:        line,
		DistanceMeters:  int(math.Round(feature.Properties.Summary.Distance)),
		DurationSeconds: int(math.Round(feature.Properties.Summary.Duration)),
	}, nil
}
