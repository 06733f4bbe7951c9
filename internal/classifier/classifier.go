package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/intakehq/helpdesk/internal/config"
)

// Result is the provider's analysis of a ticket's text.
type Result struct {
	Priority      string   `json:"priority"`
	HelpfulNotes  string   `json:"helpful_notes"`
	RelatedSkills []string `json:"related_skills"`
}

// Classifier maps ticket text to priority, notes and related skills.
type Classifier interface {
	Classify(ctx context.Context, title, description string) (*Result, error)
}

// HTTPClassifier calls the external classification provider over HTTP.
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPClassifier builds a client from config.
func NewHTTPClassifier(cfg config.ClassifierConfig, logger *zap.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout()},
		logger:   logger,
	}
}

type classifyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Classify posts the ticket text to the provider.
func (c *HTTPClassifier) Classify(ctx context.Context, title, description string) (*Result, error) {
	if c.endpoint == "" {
		return nil, errors.New("classifier endpoint not configured")
	}

	body, err := json.Marshal(classifyRequest{Title: title, Description: description})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
