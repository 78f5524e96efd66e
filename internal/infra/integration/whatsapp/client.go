package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("whatsapp cloud api not configured")

const deepLinkBase = "https://wa.me/"

// DeepLink builds a click-to-chat link that opens WhatsApp with text prefilled.
func DeepLink(phone, text string) (string, error) {
	digits := Digits(phone)
	if digits == "" {
		return "", errors.New("phone number has no digits")
	}
	return deepLinkBase + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20"), nil
}

func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Client sends free-form text through the WhatsApp Cloud API.
type Client struct {
	accessToken string
	phoneID     string
	baseURL     string
	httpClient  *http.Client
	log         *zap.Logger
}

func NewClient(accessToken, phoneID string, log *zap.Logger) *Client {
	return &Client{
		accessToken: accessToken,
		phoneID:     phoneID,
		baseURL:     "https://graph.facebook.com/v18.0",
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         log,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.accessToken != "" && c.phoneID != ""
}

func (c *Client) SendText(ctx context.Context, input SendTextInput) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                Digits(input.PhoneNumber),
		"type":              "text",
		"text": map[string]interface{}{
			"preview_url": false,
			"body":        input.Body,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var result SendMessageResponse
	_ = json.Unmarshal(respBody, &result)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if result.Error != nil {
			return "", fmt.Errorf("whatsapp api error %d: %s", resp.StatusCode, result.Error.Message)
		}
		return "", fmt.Errorf("whatsapp api error: %d", resp.StatusCode)
	}
	if result.Error != nil {
		return "", fmt.Errorf("whatsapp: %s", result.Error.Message)
	}

	var id string
	if len(result.Messages) > 0 {
		id = result.Messages[0].ID
	}
	c.log.Info("whatsapp message sent", zap.String("message_id", id))
	return id, nil
}
