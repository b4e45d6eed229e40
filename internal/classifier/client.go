// Package classifier calls the remote text classification service used when
// the keyword heuristic is not confident.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BarkinBalci/event-ingestion-service/internal/config"
)

// Request is the payload sent to the classifier
type Request struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Hints       []string `json:"hints"`
	// Categories lists the taxonomy the answer must come from
	Categories []string `json:"categories"`
}

// Prediction is one scored category
type Prediction struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Response is the classifier answer
type Response struct {
	Categories []Prediction `json:"categories"`
}

// Client is a rate limited HTTP classifier client
type Client struct {
	url     string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewClient returns nil when no classifier URL is configured
func NewClient(cfg config.Classifier, log *zap.Logger) *Client {
	if cfg.URL == "" {
		log.Info("Remote classifier disabled")
		return nil
	}

	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	log.Info("Remote classifier enabled",
		zap.String("url", cfg.URL),
		zap.Duration("timeout", timeout),
		zap.Float64("ratePerSecond", perSecond))

	return &Client{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     log,
	}
}

// Classify asks the remote service for scored categories
func (c *Client) Classify(ctx context.Context, req Request) ([]Prediction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for classifier rate limit: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classifier request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	c.log.Debug("Classifier answered",
		zap.String("name", req.Name),
		zap.Int("predictions", len(out.Categories)))
	return out.Categories, nil
}
