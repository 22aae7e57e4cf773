package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
)

const defaultResendURL = "https://api.resend.com"

type resend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	from    string
}

func newResend(client *http.Client, baseURL, apiKey, from string) *resend {
	if baseURL == "" {
		baseURL = defaultResendURL
	}
	return &resend{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, from: from}
}

type resendAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type resendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type resendRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html,omitempty"`
	Text        string             `json:"text,omitempty"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
	Tags        []resendTag        `json:"tags,omitempty"`
	Headers     map[string]string  `json:"headers,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func (r *resend) Name() string { return string(domain.KindResend) }

func (r *resend) Send(ctx context.Context, msg domain.Message) (Receipt, error) {
	req := resendRequest{
		From:    r.from,
		To:      msg.Recipients,
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		Text:    msg.TextBody,
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, resendAttachment{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}
	for _, tag := range msg.Tags {
		req.Tags = append(req.Tags, resendTag{Name: "category", Value: tag})
	}
	if len(msg.Metadata) > 0 {
		req.Headers = make(map[string]string, len(msg.Metadata))
		for k, v := range msg.Metadata {
			req.Headers["X-Meta-"+k] = v
		}
	}

	_, body, err := postJSON(ctx, r.client, r.Name(), r.baseURL+"/emails", r.apiKey, req)
	if err != nil {
		return Receipt{}, err
	}
	var resp resendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Receipt{}, fmt.Errorf("%s: %w: decode response: %v", r.Name(), domain.ErrTransport, err)
	}
	return Receipt{MessageID: resp.ID}, nil
}
