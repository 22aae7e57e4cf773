package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Message is one logical notification. It lives for a single send call.
type Message struct {
	Recipients  []string          `json:"recipients"`
	Subject     string            `json:"subject"`
	HTMLBody    string            `json:"html_body,omitempty"`
	TextBody    string            `json:"text_body,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"content"`
}

// Result is the outcome of a send after retries. It is the only shape callers see,
// whichever provider handled the message.
type Result struct {
	Success   bool   `json:"success"`
	Provider  string `json:"provider"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Attempts  int    `json:"attempts"`
}

// Err converts a failed result into ErrDeliveryFailed.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("%w via %s after %d attempts: %s", ErrDeliveryFailed, r.Provider, r.Attempts, r.Error)
}

// Kind names a provider variant.
type Kind string

const (
	KindResend   Kind = "resend"
	KindSendGrid Kind = "sendgrid"
	KindSES      Kind = "ses"
	KindMock     Kind = "mock"
)

var kinds = []Kind{KindResend, KindSendGrid, KindSES, KindMock}

func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

var (
	// ErrTransport covers network failures, timeouts and provider-side errors that may succeed on retry.
	ErrTransport = errors.New("transport failure")
	// ErrRejected means the provider refused the payload; retrying will not help.
	ErrRejected       = errors.New("rejected by provider")
	ErrNotImplemented = errors.New("provider not implemented")
	ErrDeliveryFailed = errors.New("delivery failed")
)

// Permanent reports whether err is a rejection or an unimplemented provider,
// failures a retry is not expected to change.
func Permanent(err error) bool {
	return errors.Is(err, ErrRejected) || errors.Is(err, ErrNotImplemented)
}
