package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jgoulah/billbuddy/internal/config"
)

// StatsResult is the AppDaemon generate_statistics response
type StatsResult struct {
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	TotalHours int `json:"total_hours"`
}

// GenerateStatistics asks Home Assistant to compile long-term statistics from
// the backfilled cost states so they show up in the Energy dashboard
func GenerateStatistics(ctx context.Context, haCfg config.HAConfig) (*StatsResult, error) {
	if !haCfg.Enabled {
		return nil, fmt.Errorf("Home Assistant is not enabled in config")
	}

	apiURL := fmt.Sprintf("%s/api/appdaemon/generate_statistics", haCfg.URL)

	body, err := json.Marshal(map[string]string{"entity_id": haCfg.EntityID})
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	// Longer timeout for statistics generation
	client := &http.Client{Timeout: 60 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+haCfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	var result StatsResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &result, nil
}
