package weather

import (
	"context"
	"encoding/json"
)

// UpstreamResponse is a successful upstream reply: the raw body, passed back
// to clients untouched, and its decoded form.
type UpstreamResponse struct {
	Raw     json.RawMessage
	Payload Payload
}

// Fetcher abstracts the upstream weather provider.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (UpstreamResponse, error)
}

// Store is the contract the in-memory reading store satisfies.
type Store interface {
	AddReading(city string, p Payload) []string
	GetSummary(city string) (Summary, bool)
	GetAlerts(city string) []string
	GetAllSummaries() []Summary
}
