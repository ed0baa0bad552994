// Package whatsapp sends template messages through the WhatsApp Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://graph.facebook.com/v19.0"
	DefaultLanguage = "en"
)

// APIError is the structured error the Cloud API returns.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api: status %d code %d (%s): %s", e.StatusCode, e.Code, e.Type, e.Message)
}

// ErrorCode is recorded on notification log entries.
func (e *APIError) ErrorCode() string {
	if e.Code == 0 {
		return "http_" + strconv.Itoa(e.StatusCode)
	}
	return strconv.Itoa(e.Code)
}

// Client sends template messages from one business phone number.
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	language      string
	http          *http.Client
}

func NewClient(baseURL, phoneNumberID, token, language string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if language == "" {
		language = DefaultLanguage
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		token:         token,
		language:      language,
		http:          httpClient,
	}
}

type textParam struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type component struct {
	Type       string      `json:"type"`
	Parameters []textParam `json:"parameters"`
}

type language struct {
	Code string `json:"code"`
}

type templateBody struct {
	Name       string      `json:"name"`
	Language   language    `json:"language"`
	Components []component `json:"components,omitempty"`
}

type sendRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         templateBody `json:"template"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *APIError `json:"error"`
}

// SendTemplate sends template to the E.164 number to, filling the body
// placeholders with params in order.
func (c *Client) SendTemplate(ctx context.Context, to, template string, params []string) (string, error) {
	req := sendRequest{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(to, "+"),
		Type:             "template",
	}
	req.Template.Name = template
	req.Template.Language.Code = c.language
	if len(params) > 0 {
		body := component{Type: "body"}
		for _, p := range params {
			body.Parameters = append(body.Parameters, textParam{Type: "text", Text: p})
		}
		req.Template.Components = []component{body}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal template message: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+c.phoneNumberID+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send template %s: %w", template, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read send response: %w", err)
	}
	var out sendResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode/100 == 2 {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	if resp.StatusCode/100 != 2 || out.Error != nil {
		apiErr := out.Error
		if apiErr == nil {
			apiErr = &APIError{Message: strings.TrimSpace(string(raw))}
		}
		apiErr.StatusCode = resp.StatusCode
		return "", apiErr
	}
	if len(out.Messages) == 0 {
		return "", fmt.Errorf("send template %s: response carried no message id", template)
	}
	return out.Messages[0].ID, nil
}
