package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/platform/config"

	gomail "github.com/wneessen/go-mail"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type brevoEmailRequest struct {
	Sender struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"sender"`
	To []struct {
		Email string `json:"email"`
	} `json:"to"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"htmlContent"`
}

type brevoEmailResponse struct {
	MessageID string `json:"messageId"`
}

// BrevoDispatcher sends outreach email through the Brevo transactional API.
type BrevoDispatcher struct {
	apiKey    string
	fromName  string
	fromEmail string
	client    *http.Client
}

// SMTPDispatcher delivers through the tenant's own SMTP server via go-mail.
type SMTPDispatcher struct {
	cfg config.EmailConfig
}

// NewEmailDispatcher picks Brevo when an API key is configured, SMTP when a
// host is, nil otherwise. A nil dispatcher makes the email channel
// unavailable rather than failing at send time.
func NewEmailDispatcher(cfg config.EmailConfig) Dispatcher {
	if !cfg.GetEmailEnabled() {
		return nil
	}
	if cfg.GetBrevoAPIKey() != "" {
		return &BrevoDispatcher{
			apiKey:    cfg.GetBrevoAPIKey(),
			fromName:  cfg.GetEmailFromName(),
			fromEmail: cfg.GetEmailFromAddress(),
			client:    &http.Client{Timeout: 10 * time.Second},
		}
	}
	if cfg.GetSMTPHost() != "" {
		return &SMTPDispatcher{cfg: cfg}
	}
	return nil
}

func (b *BrevoDispatcher) Dispatch(ctx context.Context, req Request) (Outcome, error) {
	subject, content, err := renderEmailContent(req)
	if err != nil {
		return Outcome{}, err
	}

	var payload brevoEmailRequest
	payload.Sender.Name = b.fromName
	payload.Sender.Email = b.fromEmail
	payload.To = []struct {
		Email string `json:"email"`
	}{{Email: req.Lead.Email}}
	payload.Subject = subject
	payload.HTMLContent = content

	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoEndpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return Outcome{}, fmt.Errorf("brevo send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Outcome{}, fmt.Errorf("brevo send failed: status %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded brevoEmailResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		// Send succeeded; a missing message ID only hurts traceability.
		decoded.MessageID = ""
	}

	outcome := Outcome{Delivered: true}
	if decoded.MessageID != "" {
		outcome.ProviderIDs = []string{decoded.MessageID}
	}
	return outcome, nil
}

func (s *SMTPDispatcher) Dispatch(ctx context.Context, req Request) (Outcome, error) {
	subject, content, err := renderEmailContent(req)
	if err != nil {
		return Outcome{}, err
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return Outcome{}, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(req.Lead.Email); err != nil {
		return Outcome{}, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, content)

	client, err := gomail.NewClient(s.cfg.GetSMTPHost(),
		gomail.WithPort(s.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.GetSMTPUsername()),
		gomail.WithPassword(s.cfg.GetSMTPPassword()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return Outcome{}, fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return Outcome{}, fmt.Errorf("smtp send: %w", err)
	}
	return Outcome{Delivered: true}, nil
}

func renderEmailContent(req Request) (subject, content string, err error) {
	tmpl, ok := emailTemplates[req.ContentKey]
	if !ok {
		return "", "", fmt.Errorf("no email template for content key %q", req.ContentKey)
	}

	firstName := strings.TrimSpace(req.Lead.FirstName)
	if firstName == "" {
		firstName = "there"
	}

	subject = fmt.Sprintf(tmpl.subject, req.Lead.Company)
	content = fmt.Sprintf(tmpl.body, firstName, req.Lead.Company)
	return subject, content, nil
}

type emailTemplate struct {
	subject string
	body    string
}

// emailTemplates maps planner content keys to renderable email content. The
// copy here is a baseline; tenants override it upstream of dispatch.
var emailTemplates = map[string]emailTemplate{
	"email_intro": {
		subject: "Quick question about %s",
		body:    "<p>Hi %s,</p><p>I noticed %s and wanted to reach out directly. Would you be open to a short conversation?</p>",
	},
	"email_value_add": {
		subject: "A thought for %s",
		body:    "<p>Hi %s,</p><p>Following up with something that might be useful for %s. Happy to share more if it resonates.</p>",
	},
	"email_breakup": {
		subject: "Closing the loop with %s",
		body:    "<p>Hi %s,</p><p>I haven't heard back, so I'll stop reaching out about %s. If timing changes, my door is open.</p>",
	},
}
