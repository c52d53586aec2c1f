// Package evogateway implements the protocol connector against an
// Evolution-API-compatible WhatsApp gateway. The gateway keeps one named
// instance per tenant and holds the wire session server-side; connection
// events are synthesized from instance-state polling, so the local
// credential workspace stays empty with this connector.
package evogateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/logutil"
	"github.com/zapgate/zapgate/internal/ports"
)

const (
	defaultInstancePrefix = "zapgate"
	defaultPollInterval   = 2 * time.Second

	// integrationType selects the gateway's embedded protocol engine.
	integrationType = "WHATSAPP-BAILEYS"

	// statusReasonLoggedOut is the gateway's disconnect code for a session
	// the remote network invalidated.
	statusReasonLoggedOut = 401

	// maxPollFailures bounds consecutive polling errors before the
	// connection is reported closed.
	maxPollFailures = 3
)

type Config struct {
	// BaseURL is the gateway endpoint, e.g. http://localhost:8080.
	BaseURL string
	// APIKey is sent as the gateway's apikey header.
	APIKey string
	// InstancePrefix namespaces per-tenant instance names on the gateway.
	InstancePrefix string
	// PollInterval is the instance-state polling cadence.
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

type Client struct {
	baseURL        string
	apiKey         string
	instancePrefix string
	pollInterval   time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
}

var _ ports.Connector = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gateway api key is required")
	}

	prefix := cfg.InstancePrefix
	if prefix == "" {
		prefix = defaultInstancePrefix
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		instancePrefix: prefix,
		pollInterval:   interval,
		httpClient:     httpClient,
		logger:         logutil.NoopIfNil(cfg.Logger),
	}, nil
}

func (c *Client) Connect(ctx context.Context, tenantID domain.TenantID, _ string) (ports.Connection, error) {
	instance := fmt.Sprintf("%s_%s", c.instancePrefix, tenantID)
	if err := c.ensureInstance(ctx, instance); err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	conn := &connection{
		client:   c,
		instance: instance,
		events:   make(chan ports.ConnectionEvent, 8),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go conn.poll(pollCtx)

	return conn, nil
}

func (c *Client) ensureInstance(ctx context.Context, instance string) error {
	var instances []struct {
		Name string `json:"name"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/instance/fetchInstances", nil, &instances); err != nil {
		return fmt.Errorf("fetch gateway instances: %w", err)
	}

	for _, existing := range instances {
		if existing.Name == instance {
			return nil
		}
	}

	payload := map[string]any{
		"instanceName": instance,
		"integration":  integrationType,
		"qrcode":       true,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/instance/create", payload, nil); err != nil {
		return fmt.Errorf("create gateway instance %q: %w", instance, err)
	}

	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}

	return nil
}

type connection struct {
	client   *Client
	instance string
	events   chan ports.ConnectionEvent

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

var _ ports.Connection = (*connection)(nil)

func (g *connection) Events() <-chan ports.ConnectionEvent {
	return g.events
}

func (g *connection) Lookup(ctx context.Context, number string) ([]ports.LookupResult, error) {
	payload := map[string]any{"numbers": []string{number}}
	var entries []struct {
		JID    string `json:"jid"`
		Exists bool   `json:"exists"`
	}
	if err := g.client.doJSON(ctx, http.MethodPost, "/chat/whatsappNumbers/"+g.instance, payload, &entries); err != nil {
		return nil, err
	}

	results := make([]ports.LookupResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, ports.LookupResult{JID: entry.JID, Exists: entry.Exists})
	}

	return results, nil
}

func (g *connection) SendText(ctx context.Context, jid, text string) (string, error) {
	payload := map[string]any{"number": jid, "text": text}
	var response struct {
		Key struct {
			ID string `json:"id"`
		} `json:"key"`
	}
	if err := g.client.doJSON(ctx, http.MethodPost, "/message/sendText/"+g.instance, payload, &response); err != nil {
		return "", err
	}
	if response.Key.ID == "" {
		return "", fmt.Errorf("gateway returned no message id")
	}

	return response.Key.ID, nil
}

func (g *connection) Close(error) error {
	g.closeOnce.Do(func() {
		g.cancel()
		<-g.done
		close(g.events)
	})
	return nil
}

// poll synthesizes the qr/open/close event stream from the gateway's
// instance-state endpoint. Only transitions are emitted.
func (g *connection) poll(ctx context.Context) {
	defer close(g.done)

	ticker := time.NewTicker(g.client.pollInterval)
	defer ticker.Stop()

	var (
		lastQR   string
		opened   bool
		failures int
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state, reason, err := g.connectionState(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			g.client.logger.Warn("poll gateway state",
				slog.String("instance", g.instance), slog.Any("error", err))
			if failures >= maxPollFailures {
				g.emit(ctx, ports.ConnectionEvent{Kind: ports.EventClose, Err: err})
				return
			}
			continue
		}
		failures = 0

		switch state {
		case "open":
			if !opened {
				opened = true
				g.emit(ctx, ports.ConnectionEvent{Kind: ports.EventOpen})
			}
		case "close", "closed":
			closeErr := error(domain.ErrConnectionClosed)
			if reason == statusReasonLoggedOut {
				closeErr = fmt.Errorf("gateway disconnect %d: %w", reason, domain.ErrLoggedOut)
			}
			g.emit(ctx, ports.ConnectionEvent{Kind: ports.EventClose, Err: closeErr})
			return
		default:
			// connecting: surface the current QR payload once per refresh
			qr, err := g.pairingCode(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				g.client.logger.Warn("fetch pairing code",
					slog.String("instance", g.instance), slog.Any("error", err))
				continue
			}
			if qr != "" && qr != lastQR {
				lastQR = qr
				g.emit(ctx, ports.ConnectionEvent{Kind: ports.EventQR, QR: qr})
			}
		}
	}
}

func (g *connection) connectionState(ctx context.Context) (state string, reason int, err error) {
	var response struct {
		Instance struct {
			State        string `json:"state"`
			StatusReason int    `json:"statusReason"`
		} `json:"instance"`
	}
	if err := g.client.doJSON(ctx, http.MethodGet, "/instance/connectionState/"+g.instance, nil, &response); err != nil {
		return "", 0, err
	}

	return response.Instance.State, response.Instance.StatusReason, nil
}

func (g *connection) pairingCode(ctx context.Context) (string, error) {
	var response struct {
		Code string `json:"code"`
	}
	if err := g.client.doJSON(ctx, http.MethodGet, "/instance/connect/"+g.instance, nil, &response); err != nil {
		return "", err
	}

	return response.Code, nil
}

func (g *connection) emit(ctx context.Context, ev ports.ConnectionEvent) {
	select {
	case g.events <- ev:
	case <-ctx.Done():
	}
}
