package problem

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var tierNames = [...]string{
	"Unrated",
	"Bronze V", "Bronze IV", "Bronze III", "Bronze II", "Bronze I",
	"Silver V", "Silver IV", "Silver III", "Silver II", "Silver I",
	"Gold V", "Gold IV", "Gold III", "Gold II", "Gold I",
	"Platinum V", "Platinum IV", "Platinum III", "Platinum II", "Platinum I",
	"Diamond V", "Diamond IV", "Diamond III", "Diamond II", "Diamond I",
	"Ruby V", "Ruby IV", "Ruby III", "Ruby II", "Ruby I",
}

// TierName maps a solved.ac level (0-30) to its display name.
func TierName(level int) string {
	if level < 0 || level >= len(tierNames) {
		return tierNames[0]
	}
	return tierNames[level]
}

type Tier struct {
	Level    int
	Name     string
	BadgeURL string
}

// TierClient looks up problem difficulty on solved.ac.
type TierClient struct {
	client   *http.Client
	endpoint string
}

func NewTierClient(endpoint string, client *http.Client) *TierClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TierClient{client: client, endpoint: endpoint}
}

func (c *TierClient) Fetch(ctx context.Context, problemID string) (*Tier, error) {
	if err := checkID(problemID); err != nil {
		return nil, err
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("problemId", problemID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tier lookup for %s: unexpected status %d", problemID, resp.StatusCode)
	}

	var body struct {
		Level int `json:"level"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode tier response: %w", err)
	}
	return &Tier{
		Level:    body.Level,
		Name:     TierName(body.Level),
		BadgeURL: fmt.Sprintf("https://static.solved.ac/tier_small/%d.svg", body.Level),
	}, nil
}
