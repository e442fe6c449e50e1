// Package enrich cross-checks resolved records against the NHTSA vPIC
// decode API. It never overrides a resolved field; disagreement only adds
// warnings so reviewers can see where the public decode differs.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LossLensAI/losslens-engine/engine/domain"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://vpic.nhtsa.dot.gov/api"

// Verifier calls the vPIC DecodeVinValues endpoint.
type Verifier struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewVerifier creates a Verifier with API pacing suitable for a background
// worker.
func NewVerifier() *Verifier {
	return &Verifier{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

// NewVerifierWithBaseURL overrides the API endpoint. Used by tests.
func NewVerifierWithBaseURL(baseURL string) *Verifier {
	v := NewVerifier()
	v.baseURL = strings.TrimRight(baseURL, "/")
	return v
}

// vpicResponse is the shape of a DecodeVinValues reply. The flat-format
// endpoint returns one result row with string-typed fields.
type vpicResponse struct {
	Results []struct {
		Make      string `json:"Make"`
		Model     string `json:"Model"`
		ModelYear string `json:"ModelYear"`
		ErrorCode string `json:"ErrorCode"`
	} `json:"Results"`
}

// Decoded holds the subset of the vPIC decode the verifier compares.
type Decoded struct {
	Make      string
	Model     string
	ModelYear int
}

// Decode fetches the vPIC decode for a VIN.
func (v *Verifier) Decode(ctx context.Context, vin string) (Decoded, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return Decoded{}, err
	}

	url := fmt.Sprintf("%s/vehicles/DecodeVinValues/%s?format=json", v.baseURL, neturl.PathEscape(vin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Decoded{}, err
	}
	req.Header.Set("User-Agent", "losslens-enrich/1.0")

	resp, err := v.client.Do(req)
	if err != nil {
		return Decoded{}, fmt.Errorf("enrich: vpic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Decoded{}, fmt.Errorf("enrich: unexpected status %d from vpic", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Decoded{}, err
	}
	var parsed vpicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Decoded{}, fmt.Errorf("enrich: decode vpic response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return Decoded{}, fmt.Errorf("enrich: empty vpic result for %s", vin)
	}

	r := parsed.Results[0]
	d := Decoded{
		Make:  strings.TrimSpace(r.Make),
		Model: strings.TrimSpace(r.Model),
	}
	if y, err := strconv.Atoi(strings.TrimSpace(r.ModelYear)); err == nil {
		d.ModelYear = y
	}
	return d, nil
}

// Verify compares a resolved record against the vPIC decode of its VIN and
// returns warnings for disagreements. A record without a VIN verifies
// trivially. Network failures surface as errors so the caller can decide
// whether to retry; they are never turned into record warnings.
func (v *Verifier) Verify(ctx context.Context, rec domain.Record) ([]string, error) {
	if rec.VIN == "" {
		return nil, nil
	}
	decoded, err := v.Decode(ctx, rec.VIN)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if rec.Make != "" && decoded.Make != "" && !strings.EqualFold(rec.Make, decoded.Make) {
		warnings = append(warnings, fmt.Sprintf("vpic decode disagrees on make: resolved %q, vpic %q", rec.Make, decoded.Make))
	}
	if rec.ModelYear > 0 && decoded.ModelYear > 0 && rec.ModelYear != decoded.ModelYear {
		warnings = append(warnings, fmt.Sprintf("vpic decode disagrees on model year: resolved %d, vpic %d", rec.ModelYear, decoded.ModelYear))
	}
	return warnings, nil
}
