package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"setter-platform/internal/config"
)

// GHLGateway implements Gateway against the GoHighLevel contacts API.
type GHLGateway struct {
	apiKey     string
	locationID string

	httpClient *http.Client
	clock      func() time.Time
}

const ghlAPIBase = "https://rest.gohighlevel.com/v1"

func NewGHLGateway(cfg config.LeadsConfig) *GHLGateway {
	return &GHLGateway{
		apiKey:     cfg.GHLAPIKey,
		locationID: cfg.GHLLocationID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		clock:      time.Now,
	}
}

type ghlContact struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CompanyName string `json:"companyName"`
	CreatedAt   string `json:"createdAt"`
}

func (g *GHLGateway) FetchRecent(ctx context.Context, window time.Duration) ([]Lead, error) {
	q := url.Values{}
	q.Set("locationId", g.locationID)
	q.Set("limit", "100")
	q.Set("skip", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/contacts/?%s", ghlAPIBase, q.Encode()), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leads: ghl contact fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leads: ghl contact fetch returned %d", resp.StatusCode)
	}

	var body struct {
		Contacts []ghlContact `json:"contacts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("leads: ghl response decode failed: %w", err)
	}

	cutoff := g.clock().Add(-window)
	out := make([]Lead, 0, len(body.Contacts))
	for _, c := range body.Contacts {
		createdAt, err := time.Parse(time.RFC3339, c.CreatedAt)
		if err == nil && createdAt.Before(cutoff) {
			continue
		}
		// Unparseable timestamps keep the lead in the candidate set.
		out = append(out, Lead{
			ID:        c.ID,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Email:     c.Email,
			Phone:     c.Phone,
			Company:   c.CompanyName,
			Source:    "ghl",
			CreatedAt: createdAt,
		})
	}
	return out, nil
}

// UpdateStatus writes call tracking fields back onto the contact's custom
// fields so the CRM shows which leads were dialed and how the calls went.
func (g *GHLGateway) UpdateStatus(ctx context.Context, leadID, status, outcome string) error {
	if outcome == "" {
		outcome = "unknown"
	}
	payload := map[string]any{
		"customField": map[string]string{
			"c_call_status":  status,
			"c_call_outcome": outcome,
			"c_last_called":  g.clock().UTC().Format(time.RFC3339),
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/contacts/%s", ghlAPIBase, url.PathEscape(leadID)), bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("leads: ghl status update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("leads: ghl status update returned %d", resp.StatusCode)
	}
	return nil
}
