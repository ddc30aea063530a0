package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Transcript is one translated utterance shown on the agent dashboard.
type Transcript struct {
	CallSid    string
	Channel    int // 1 = caller (leg A), 2 = called party (leg B)
	Original   string
	Translated string
}

// DashboardConfig holds configuration for the dashboard notifier.
type DashboardConfig struct {
	BaseURL   string // e.g. https://dialer.example.com/api/realtime_translation_bridge
	Agent     string // appended to BaseURL
	JWTSecret string // optional; signs a short-lived bearer token per request

	HTTPClient *http.Client // optional; defaults to a client with a 10s timeout
}

// Dashboard posts live transcripts to the agent dashboard. Delivery is
// best-effort: failures are logged and dropped.
type Dashboard struct {
	endpoint  string
	jwtSecret string
	logger    *log.Logger
	client    *http.Client
	wg        sync.WaitGroup
}

// NewDashboard creates a new Dashboard notifier. If BaseURL is empty,
// notifications are silently skipped.
func NewDashboard(cfg DashboardConfig, logger *log.Logger) *Dashboard {
	endpoint := ""
	if cfg.BaseURL != "" {
		endpoint = strings.TrimRight(cfg.BaseURL, "/")
		if cfg.Agent != "" {
			endpoint += "/" + url.PathEscape(cfg.Agent)
		}
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Dashboard{
		endpoint:  endpoint,
		jwtSecret: cfg.JWTSecret,
		logger:    logger,
		client:    client,
	}
}

// Enabled returns true if the dashboard is configured.
func (d *Dashboard) Enabled() bool {
	return d != nil && d.endpoint != ""
}

// dashboardPayload is the JSON body the dashboard expects.
type dashboardPayload struct {
	Channel       int      `json:"channel"`
	Transcript    string   `json:"transcript"`
	Confidence    float64  `json:"confidence"`
	IsFinal       bool     `json:"is_final"`
	NamedEntities []string `json:"named_entities"`
	Sentiment     []string `json:"sentiment"`
}

// formatTranscript renders the original and translated text as the
// dashboard's HTML snippet. Both texts are HTML-escaped, so the dashboard
// receives entities such as &#39; for apostrophes and must not escape again.
func formatTranscript(original, translated string) string {
	return fmt.Sprintf("<strong style=\"font-weight: bold;\">Original:</strong> %s<br>\n"+
		"  <strong style=\"font-weight: bold;\">Translated:</strong> %s",
		html.EscapeString(original), html.EscapeString(translated))
}

// NotifyTranscript posts t asynchronously.
func (d *Dashboard) NotifyTranscript(ctx context.Context, t Transcript) {
	if !d.Enabled() {
		return
	}

	msg := dashboardPayload{
		Channel:       t.Channel,
		Transcript:    formatTranscript(t.Original, t.Translated),
		Confidence:    1,
		IsFinal:       true,
		NamedEntities: []string{},
		Sentiment:     []string{},
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.post(context.WithoutCancel(ctx), t.CallSid, msg); err != nil {
			d.logger.Printf("dashboard: error: call %s: %v", t.CallSid, err)
		}
	}()
}

// Wait blocks until all in-flight notifications have finished.
func (d *Dashboard) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func (d *Dashboard) post(ctx context.Context, callSid string, msg dashboardPayload) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if d.jwtSecret != "" {
		token, err := d.bearerToken(callSid)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("dashboard returned status %d", resp.StatusCode)
	}
	return nil
}

// bearerToken signs a one-minute HS256 token scoped to the call.
func (d *Dashboard) bearerToken(callSid string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   callSid,
		Issuer:    "call-translator",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(d.jwtSecret))
}
