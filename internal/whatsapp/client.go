// Package whatsapp sends approved template messages through the WhatsApp
// Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medtour_backend/platform/config"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/phone"
)

// ErrNotConfigured is returned by a nil client.
var ErrNotConfigured = errors.New("whatsapp channel is not configured")

type Client struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	language      string
	http          *http.Client
	log           *logger.Logger
}

type languageParam struct {
	Code string `json:"code"`
}

type textParam struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type component struct {
	Type       string      `json:"type"`
	Parameters []textParam `json:"parameters"`
}

type templatePayload struct {
	Name       string        `json:"name"`
	Language   languageParam `json:"language"`
	Components []component   `json:"components,omitempty"`
}

type messageRequest struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templatePayload `json:"template"`
}

type messageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// NewClient returns nil when the access token or phone number id is missing.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppAccessToken() == "" || cfg.GetWhatsAppPhoneNumberID() == "" {
		return nil
	}

	language := cfg.GetWhatsAppLanguage()
	if language == "" {
		language = "en"
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.GetWhatsAppAPIURL(), "/"),
		accessToken:   cfg.GetWhatsAppAccessToken(),
		phoneNumberID: cfg.GetWhatsAppPhoneNumberID(),
		language:      language,
		http:          &http.Client{Timeout: 10 * time.Second},
		log:           log,
	}
}

// SendTemplate sends the named template with positional body parameters and
// returns the provider message id.
func (c *Client) SendTemplate(ctx context.Context, to, name string, params []string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}

	recipient := strings.TrimPrefix(phone.NormalizeE164(to, ""), "+")
	if recipient == "" {
		return "", errors.New("whatsapp recipient is empty")
	}

	payload := messageRequest{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "template",
		Template: templatePayload{
			Name:     name,
			Language: languageParam{Code: c.language},
		},
	}
	if len(params) > 0 {
		body := component{Type: "body", Parameters: make([]textParam, 0, len(params))}
		for _, p := range params {
			body.Parameters = append(body.Parameters, textParam{Type: "text", Text: p})
		}
		payload.Template.Components = []component{body}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var decoded messageResponse
	_ = json.Unmarshal(data, &decoded)

	if resp.StatusCode >= http.StatusBadRequest {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return "", fmt.Errorf("whatsapp api returned %d: %s", resp.StatusCode, decoded.Error.Message)
		}
		return "", fmt.Errorf("whatsapp api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if len(decoded.Messages) == 0 || decoded.Messages[0].ID == "" {
		return "", errors.New("whatsapp api response has no message id")
	}

	c.log.Info("whatsapp template sent", "template", name, "message_id", decoded.Messages[0].ID)
	return decoded.Messages[0].ID, nil
}
