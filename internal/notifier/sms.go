package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// SMSConfig holds SMS gateway configuration.
type SMSConfig struct {
	// GatewayURL is the HTTP endpoint of the external SMS gateway.
	GatewayURL string

	// Credential is the shared API credential sent with every request.
	Credential string

	// RequestTimeout bounds each gateway call. Defaults to 10s.
	RequestTimeout time.Duration

	// MaxPerSecond caps outbound gateway calls. Defaults to 10.
	MaxPerSecond int
}

// Validate validates the SMS gateway configuration.
func (c *SMSConfig) Validate() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("gateway URL is required")
	}
	if !strings.HasPrefix(c.GatewayURL, "http://") && !strings.HasPrefix(c.GatewayURL, "https://") {
		return fmt.Errorf("gateway URL must be an HTTP endpoint")
	}
	if c.Credential == "" {
		return fmt.Errorf("gateway credential is required")
	}
	return nil
}

// SMSClient sends text messages through the external gateway. The
// gateway is treated as unreliable: every call is bounded by a timeout
// and a failure affects only the destination being sent to.
type SMSClient struct {
	config     SMSConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSMSClient creates a new SMS gateway client.
func NewSMSClient(config SMSConfig) (*SMSClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sms config: %w", err)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if config.MaxPerSecond <= 0 {
		config.MaxPerSecond = 10
	}

	return &SMSClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.MaxPerSecond), config.MaxPerSecond),
	}, nil
}

// smsRequest is the gateway request payload.
type smsRequest struct {
	Destination string `json:"destination"`
	Message     string `json:"message"`
	Credential  string `json:"credential"`
}

// smsResponse is the gateway response payload.
type smsResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Send delivers one message to one destination. The context bounds the
// whole call; a timeout is a delivery failure for this destination only.
func (c *SMSClient) Send(ctx context.Context, destination, message string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(smsRequest{
		Destination: destination,
		Message:     message,
		Credential:  c.config.Credential,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("gateway error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !result.Success {
		if result.Error == "" {
			result.Error = "unknown gateway error"
		}
		return fmt.Errorf("gateway rejected send: %s", result.Error)
	}
	return nil
}
