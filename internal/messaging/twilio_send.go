package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/salonhq/booking-agent/pkg/logging"
)

// TwilioSender delivers WhatsApp messages and voice-call triggers through
// Twilio's REST API. Addresses are normalized on every outbound call; the
// transport prefix is re-applied only where WhatsApp requires it.
type TwilioSender struct {
	accountSID   string
	authToken    string
	whatsAppFrom string
	voiceFrom    string
	baseURL      string
	httpClient   *http.Client
	logger       *logging.Logger
}

// NewTwilioSender builds a sender with sane defaults.
func NewTwilioSender(accountSID, authToken, whatsAppFrom, voiceFrom string, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSender{
		accountSID:   accountSID,
		authToken:    authToken,
		whatsAppFrom: whatsAppFrom,
		voiceFrom:    voiceFrom,
		baseURL:      "https://api.twilio.com",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// SendMessage dispatches a single WhatsApp message, retrying transient failures.
func (s *TwilioSender) SendMessage(ctx context.Context, to, body string) error {
	if s.accountSID == "" || s.authToken == "" {
		return errors.New("messaging: twilio credentials missing")
	}
	normalized, err := NormalizeAddress(to)
	if err != nil {
		return fmt.Errorf("messaging: send message: %w", err)
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("messaging: body required")
	}

	payload := url.Values{}
	payload.Set("To", WhatsAppAddress(normalized))
	payload.Set("From", WhatsAppAddress(s.whatsAppFrom))
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	if err := s.post(ctx, endpoint, payload); err != nil {
		return err
	}
	s.logger.Info("whatsapp message sent", "to", normalized)
	return nil
}

// StartCall triggers an outbound voice call whose flow is driven by the
// TwiML served at callbackURL.
func (s *TwilioSender) StartCall(ctx context.Context, to, callbackURL string) error {
	if s.accountSID == "" || s.authToken == "" {
		return errors.New("messaging: twilio credentials missing")
	}
	normalized, err := NormalizeAddress(to)
	if err != nil {
		return fmt.Errorf("messaging: start call: %w", err)
	}
	if callbackURL == "" {
		return errors.New("messaging: callback url required")
	}

	payload := url.Values{}
	payload.Set("To", normalized)
	payload.Set("From", s.voiceFrom)
	payload.Set("Url", callbackURL)
	payload.Set("Method", http.MethodPost)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", s.baseURL, s.accountSID)
	if err := s.post(ctx, endpoint, payload); err != nil {
		return err
	}
	s.logger.Info("voice call initiated", "to", normalized)
	return nil
}

func (s *TwilioSender) post(ctx context.Context, endpoint string, payload url.Values) error {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			return err
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("messaging: twilio request failed: %s", formatTwilioError(resp.StatusCode, body))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				return lastErr
			}
		}

		if attempt < 3 {
			sleep := time.Duration(200+rand.Intn(300)) * time.Millisecond
			time.Sleep(sleep)
		}
	}
	return lastErr
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
