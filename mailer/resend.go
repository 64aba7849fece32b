package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

const resendAPI = "https://api.resend.com/emails"

type resendAttachment struct {
	Filename string `json:"filename"`
	// Resend expects base64-encoded content
	Content string `json:"content"`
}

type resendEmail struct {
	From        string             `json:"from"`
	To          string             `json:"to"`
	Subject     string             `json:"subject"`
	Html        string             `json:"html"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

// ResendTransport delivers emails through the Resend HTTP API. With no
// API key configured it logs the email instead of sending, so local
// runs exercise the dispatch flow without a provider account.
type ResendTransport struct {
	APIKey   string
	From     string
	Endpoint string
	Client   *http.Client
}

// NewResendTransport constructs a transport sending as from.
func NewResendTransport(apiKey, from string) *ResendTransport {
	return &ResendTransport{
		APIKey:   apiKey,
		From:     from,
		Endpoint: resendAPI,
		Client:   http.DefaultClient,
	}
}

// Send delivers one email with the coupon attached.
func (t *ResendTransport) Send(ctx context.Context, to, subject, html string, attachment []byte, filename string) error {
	if t.APIKey == "" {
		log.Warn().Str("to", to).Str("subject", subject).Msg("no RESEND_API_KEY, mock email triggered")
		return nil
	}

	payload := resendEmail{
		From:    t.From,
		To:      to,
		Subject: subject,
		Html:    html,
	}
	if len(attachment) > 0 {
		payload.Attachments = []resendAttachment{{
			Filename: filename,
			Content:  base64.StdEncoding.EncodeToString(attachment),
		}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding email payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error building email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("resend API error: %s", resp.Status)
	}
	return nil
}
