package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agrimech/manuals-qa/internal/config"
	"github.com/sirupsen/logrus"
)

// FailureSentinel is returned in place of an answer on any upstream fault.
// Callers must never cache it.
const FailureSentinel = "Sorry, I couldn't find an answer."

// Exchange is one prior conversation turn, reduced to who spoke and what was
// said.
type Exchange struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type Client struct {
	httpClient *http.Client
	cfg        *config.Config
	log        *logrus.Entry
}

type loggingTransport struct {
	log *logrus.Entry
}

func NewClient(logger *logrus.Logger, cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: &loggingTransport{log: logger.WithField("component", "gemini_transport")},
		},
		cfg: cfg,
		log: logger.WithField("component", "gemini_client"),
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Ask sends the question with its manual context and optional conversation
// history to the generative-language API and returns the generated text.
// It never fails: any transport, status, or decode problem yields the
// failure sentinel instead.
func (c *Client) Ask(ctx context.Context, question, manualContext string, history []Exchange) string {
	log := c.log.WithField("operation", "generate_content")
	start := time.Now()

	payload := generateRequest{Contents: buildContents(question, manualContext, history)}
	body, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("Failed to encode request")
		return FailureSentinel
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.cfg.GeminiEndpoint, c.cfg.GeminiModel, c.cfg.GeminiAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.WithError(err).Error("Failed to build request")
		return FailureSentinel
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("Upstream request failed")
		return FailureSentinel
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status_code", resp.StatusCode).Error("Upstream returned non-OK status")
		return FailureSentinel
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		log.WithError(err).Error("Failed to decode upstream response")
		return FailureSentinel
	}

	answer := firstCandidateText(genResp)
	if answer == "" {
		log.Warn("Upstream returned no candidate text")
		return FailureSentinel
	}

	log.WithField("duration", time.Since(start)).Debug("Upstream answer received")
	return answer
}

// buildContents maps history turns to API roles and appends the current
// question with its manual context as the final user turn.
func buildContents(question, manualContext string, history []Exchange) []content {
	contents := make([]content, 0, len(history)+1)
	for _, exchange := range history {
		role := "model"
		if exchange.Sender == "user" {
			role = "user"
		}
		contents = append(contents, content{
			Role:  role,
			Parts: []part{{Text: exchange.Text}},
		})
	}
	contents = append(contents, content{
		Role:  "user",
		Parts: []part{{Text: fmt.Sprintf("Context: %s\nQuestion: %s", manualContext, question)}},
	})
	return contents
}

func firstCandidateText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return ""
	}
	return parts[0].Text
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := t.log.WithFields(logrus.Fields{
		"method": req.Method,
		"host":   req.URL.Host,
	})

	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		log.WithError(err).Error("HTTP request failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration":    time.Since(start),
	}).Debug("HTTP request completed")
	return resp, nil
}
