package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/billbuddy/internal/config"
	"github.com/jgoulah/billbuddy/internal/database"
)

// Publisher sends cost snapshots to an MQTT broker and/or Home Assistant
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	haConfig    config.HAConfig
	http        *http.Client
}

// New creates a new publisher. At least one of MQTT or Home Assistant must be enabled.
func New(mqttCfg config.MQTTConfig, haCfg config.HAConfig) (*Publisher, error) {
	if !mqttCfg.Enabled && !haCfg.Enabled {
		return nil, fmt.Errorf("neither MQTT nor Home Assistant is enabled in config")
	}

	// Validate HA config if enabled
	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
		if haCfg.EntityID == "" {
			return nil, fmt.Errorf("Home Assistant entity_id is required when enabled")
		}
	}

	p := &Publisher{
		haConfig: haCfg,
		http:     &http.Client{Timeout: 10 * time.Second},
	}

	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		p.topicPrefix = mqttCfg.TopicPrefix
		if p.topicPrefix == "" {
			p.topicPrefix = "billbuddy"
		}

		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("billbuddy")
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		p.client = mqtt.NewClient(opts)
		if token := p.client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
	}

	return p, nil
}

// CostPayload is the retained MQTT message for one customer
type CostPayload struct {
	CustomerID   int     `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Date         string  `json:"date"`
	Day          float64 `json:"day"`
	Month        float64 `json:"month"`
	Year         float64 `json:"year"`
}

// HAPayload matches the Home Assistant backfill service call data
type HAPayload struct {
	EntityID    string `json:"entity_id"`
	State       string `json:"state"`
	LastChanged string `json:"last_changed"`
	LastUpdated string `json:"last_updated"`
}

// Topic is <prefix>/customer/<id>/cost
func Topic(prefix string, customerID int) string {
	return fmt.Sprintf("%s/customer/%d/cost", prefix, customerID)
}

// NewCostPayload converts a snapshot to its MQTT form
func NewCostPayload(s database.Snapshot) CostPayload {
	return CostPayload{
		CustomerID:   s.CustomerID,
		CustomerName: s.CustomerName,
		Date:         s.Date.Format("2006-01-02"),
		Day:          s.DayCost,
		Month:        s.MonthCost,
		Year:         s.YearCost,
	}
}

// NewHAPayload converts a snapshot to a backfill call. The entity state is the month-to-date cost.
func NewHAPayload(entityID string, s database.Snapshot) HAPayload {
	timestamp := s.Date.Format(time.RFC3339)
	return HAPayload{
		EntityID:    entityID,
		State:       fmt.Sprintf("%.2f", s.MonthCost),
		LastChanged: timestamp,
		LastUpdated: timestamp,
	}
}

// Publish sends a snapshot to every enabled destination
func (p *Publisher) Publish(ctx context.Context, s database.Snapshot) error {
	var errs []error
	if p.client != nil {
		if err := p.publishMQTT(s); err != nil {
			errs = append(errs, err)
		}
	}
	if p.haConfig.Enabled {
		if err := p.publishHA(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Publisher) publishMQTT(s database.Snapshot) error {
	body, err := json.Marshal(NewCostPayload(s))
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(Topic(p.topicPrefix, s.CustomerID), 1, true, body)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("MQTT publish timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish: %w", err)
	}
	return nil
}

func (p *Publisher) publishHA(ctx context.Context, s database.Snapshot) error {
	// AppDaemon API endpoint
	apiURL := fmt.Sprintf("%s/api/appdaemon/backfill_state", p.haConfig.URL)

	body, err := json.Marshal(NewHAPayload(p.haConfig.EntityID, s))
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read error response body for debugging
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
