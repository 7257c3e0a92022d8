package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
)

const defaultSendTimeout = 10 * time.Second

// EvolutionClient sends messages through an Evolution API compatible gateway.
type EvolutionClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type evolutionMedia struct {
	MediaType string `json:"mediatype"`
	Media     string `json:"media"`
}

type evolutionSendText struct {
	Number string           `json:"number"`
	Text   string           `json:"text"`
	Medias []evolutionMedia `json:"medias,omitempty"`
}

// NewEvolutionClient builds a client whose every request is bounded by timeout.
func NewEvolutionClient(baseURL, apiKey string, timeout time.Duration) *EvolutionClient {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &EvolutionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Send posts the message to /message/sendText/{session}. Non-2xx is an error.
func (c *EvolutionClient) Send(ctx context.Context, req SendRequest) error {
	payload := evolutionSendText{
		Number: req.Number,
		Text:   req.Text,
	}
	if req.MediaURL != "" {
		payload.Medias = []evolutionMedia{{MediaType: req.MediaType, Media: req.MediaURL}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, url.PathEscape(req.SessionName))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: failed to send request: %w", apperrors.ErrDispatch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: provider returned status %d: %s", apperrors.ErrDispatch, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
