// Package providers implements the source adapters that turn heterogeneous
// upstream hazard APIs into uniform SourceReadings. Each adapter owns its
// provider's payload decoding and normalization table; everything past the
// adapter boundary deals only in normalized 0-100 scores.
//
// Adapters never return errors. A provider failure becomes a failed reading
// for each requested hazard, so the orchestrator can make degradation
// decisions from data instead of control flow.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"riskprofile/internal/types"
)

// maxResponseBytes caps how much of a provider response is read. Hazard
// payloads are small; anything past this is a misbehaving upstream.
const maxResponseBytes = 1 << 20

// HTTPDoer abstracts the resilient HTTP client (external.BaseClient) for
// testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SourceAdapter is one upstream hazard data provider.
type SourceAdapter interface {
	// Name returns the provider's stable identifier.
	Name() types.ProviderID

	// SupportedHazards returns the hazards this provider can report on, in
	// canonical order.
	SupportedHazards() []types.HazardType

	// Supports reports whether the provider covers the hazard.
	Supports(h types.HazardType) bool

	// Timeout is the per-call budget for this provider. The orchestrator
	// bounds each Fetch with it.
	Timeout() time.Duration

	// Fetch retrieves readings for the requested hazards at the coordinate.
	// The result contains exactly one reading per requested hazard the
	// provider supports; unsupported hazards are omitted. Failures are
	// recorded on the readings themselves.
	Fetch(ctx context.Context, coord types.Coordinate, hazards []types.HazardType) []types.SourceReading
}

// supportedOf filters the requested hazards down to those the adapter covers,
// preserving request order.
func supportedOf(requested []types.HazardType, supports func(types.HazardType) bool) []types.HazardType {
	var out []types.HazardType
	for _, h := range requested {
		if supports(h) {
			out = append(out, h)
		}
	}
	return out
}

// failAll produces one failed reading per hazard, all carrying the same
// failure. Used when the provider call itself failed before any per-hazard
// data existed.
func failAll(p types.ProviderID, hazards []types.HazardType, code types.ErrorCode, msg string, now time.Time) []types.SourceReading {
	readings := make([]types.SourceReading, 0, len(hazards))
	for _, h := range hazards {
		readings = append(readings, types.FailedReading(p, h, code, msg, now))
	}
	return readings
}

// failureCodeFor maps a transport error to the reading failure code. The
// BaseClient already classified the error; anything unclassified counts as
// the provider being unavailable.
func failureCodeFor(err error) types.ErrorCode {
	if appErr, ok := types.AsAppError(err); ok {
		switch appErr.Code {
		case types.ErrCodeUpstreamTimeout, types.ErrCodeUpstreamRateLimited,
			types.ErrCodeUpstreamUnavailable, types.ErrCodeUpstreamInvalidResponse:
			return appErr.Code
		}
	}
	return types.ErrCodeUpstreamUnavailable
}

// decodeResponse reads and decodes a provider JSON payload into dst,
// enforcing the response size cap. The body is closed.
func decodeResponse(resp *http.Response, dst any) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}
