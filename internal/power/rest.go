package power

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/infrastructure/logging"
	"github.com/boardlab/boardlab/internal/infrastructure/resilience"
)

// RESTConfig points at a PDU outlet exposed over HTTP. The three URLs are
// hit with GET; most rack PDUs and smart plugs work this way.
type RESTConfig struct {
	OnURL    string
	OffURL   string
	StateURL string
	// CycleDelay defaults to DefaultCycleDelay.
	CycleDelay time.Duration
}

// RESTDriver drives a networked PDU outlet. Requests retry on transient
// failures; PDU firmware is flaky enough to deserve it.
type RESTDriver struct {
	cfg     RESTConfig
	client  *retryablehttp.Client
	breaker *resilience.Breaker
	log     *logging.Logger
}

// NewREST builds the driver.
func NewREST(cfg RESTConfig, log *logging.Logger) (*RESTDriver, error) {
	if cfg.OnURL == "" || cfg.OffURL == "" {
		return nil, fmt.Errorf("power: on and off URLs required")
	}
	if cfg.CycleDelay <= 0 {
		cfg.CycleDelay = DefaultCycleDelay
	}
	if log == nil {
		log = logging.NewNop()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	// A rebooting PDU times out every request for a while; the breaker
	// stops the retries from piling onto it.
	breaker := resilience.New("pdu", resilience.Settings{
		FailureThreshold: 3,
		Cooldown:         15 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("power endpoint breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &RESTDriver{cfg: cfg, client: client, breaker: breaker, log: log}, nil
}

var _ Driver = (*RESTDriver)(nil)

// On energizes the outlet.
func (d *RESTDriver) On(ctx context.Context) error {
	d.log.Info("power on", zap.String("url", d.cfg.OnURL))
	_, err := d.get(ctx, d.cfg.OnURL)
	return err
}

// Off de-energizes the outlet.
func (d *RESTDriver) Off(ctx context.Context) error {
	d.log.Info("power off", zap.String("url", d.cfg.OffURL))
	_, err := d.get(ctx, d.cfg.OffURL)
	return err
}

// Cycle turns the outlet off, waits, and turns it back on.
func (d *RESTDriver) Cycle(ctx context.Context) error {
	if err := d.Off(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.cfg.CycleDelay):
	}
	return d.On(ctx)
}

// Get reads the outlet state. Anything but a recognizable on/off answer is
// an error; guessing about power is worse than failing.
func (d *RESTDriver) Get(ctx context.Context) (bool, error) {
	if d.cfg.StateURL == "" {
		return false, fmt.Errorf("power: no state URL configured")
	}
	body, err := d.get(ctx, d.cfg.StateURL)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(body)) {
	case "1", "on", "true":
		return true, nil
	case "0", "off", "false":
		return false, nil
	}
	return false, fmt.Errorf("power: unrecognized state %q", strings.TrimSpace(body))
}

func (d *RESTDriver) get(ctx context.Context, url string) (string, error) {
	var body string
	err := d.breaker.Do(func() error {
		var reqErr error
		body, reqErr = d.fetch(ctx, url)
		return reqErr
	})
	return body, err
}

func (d *RESTDriver) fetch(ctx context.Context, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("power request %s: %w", url, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("power request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("power response %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("power request %s: status %d", url, resp.StatusCode)
	}
	return string(body), nil
}
