package provider

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
)

const defaultSendGridURL = "https://api.sendgrid.com"

type sendGrid struct {
	client  *http.Client
	baseURL string
	apiKey  string
	from    string
}

func newSendGrid(client *http.Client, baseURL, apiKey, from string) *sendGrid {
	if baseURL == "" {
		baseURL = defaultSendGridURL
	}
	return &sendGrid{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, from: from}
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgAttachment struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
	Type     string `json:"type,omitempty"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	Attachments      []sgAttachment      `json:"attachments,omitempty"`
	Categories       []string            `json:"categories,omitempty"`
	CustomArgs       map[string]string   `json:"custom_args,omitempty"`
}

func (s *sendGrid) Name() string { return string(domain.KindSendGrid) }

func (s *sendGrid) Send(ctx context.Context, msg domain.Message) (Receipt, error) {
	to := make([]sgAddress, 0, len(msg.Recipients))
	for _, r := range msg.Recipients {
		to = append(to, sgAddress{Email: r})
	}
	req := sgRequest{
		Personalizations: []sgPersonalization{{To: to}},
		From:             sgAddress{Email: s.from},
		Subject:          msg.Subject,
		Categories:       msg.Tags,
		CustomArgs:       msg.Metadata,
	}
	// text/plain must precede text/html.
	if msg.TextBody != "" {
		req.Content = append(req.Content, sgContent{Type: "text/plain", Value: msg.TextBody})
	}
	if msg.HTMLBody != "" {
		req.Content = append(req.Content, sgContent{Type: "text/html", Value: msg.HTMLBody})
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, sgAttachment{
			Content:  base64.StdEncoding.EncodeToString(a.Content),
			Filename: a.Filename,
			Type:     a.ContentType,
		})
	}

	resp, _, err := postJSON(ctx, s.client, s.Name(), s.baseURL+"/v3/mail/send", s.apiKey, req)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{MessageID: resp.Header.Get("X-Message-Id")}, nil
}
