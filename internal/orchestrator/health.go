package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/AnotherFullstackDev/httpreqx"
	"github.com/AnotherFullstackDev/stack-ctl/internal/engine"
	"github.com/AnotherFullstackDev/stack-ctl/internal/stack"
)

// Prober runs a single readiness probe. An error means the probe failed,
// not that probing must stop; the wait loop decides that.
type Prober interface {
	Probe(ctx context.Context) error
}

// cmdProber execs the healthcheck argv inside the container, the same probe
// the walkthrough configures for the database tier (pg_isready).
type cmdProber struct {
	engine    engine.Engine
	container string
	cmd       []string
}

func (p *cmdProber) Probe(ctx context.Context) error {
	var out bytes.Buffer
	if err := p.engine.Exec(ctx, p.container, p.cmd, nil, &out, &out); err != nil {
		return fmt.Errorf("health command failed: %w", err)
	}
	return nil
}

// httpProber polls an HTTP endpoint from the host and accepts any 2xx.
type httpProber struct {
	client *httpreqx.HttpClient
	url    string
}

func (p *httpProber) Probe(ctx context.Context) error {
	resp, err := p.client.NewGetRequest(ctx, p.url).Do()
	if err != nil {
		return fmt.Errorf("health endpoint unreachable: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("health endpoint returned no response")
	}
	defer func() {
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func newHTTPClient() *httpreqx.HttpClient {
	return httpreqx.NewHttpClient().
		SetStackTraceEnabled(false)
}

// NewProber builds the prober matching the healthcheck shape.
func NewProber(e engine.Engine, container string, hc stack.Healthcheck) (Prober, error) {
	switch {
	case len(hc.Cmd) > 0:
		return &cmdProber{engine: e, container: container, cmd: hc.Cmd}, nil
	case hc.HTTP != "":
		return &httpProber{client: newHTTPClient(), url: hc.HTTP}, nil
	default:
		return nil, fmt.Errorf("healthcheck declares neither cmd nor http")
	}
}

// WaitHealthy gates on the healthcheck: after the start period it probes at
// the configured interval and succeeds on the first passing probe. Retries
// counts consecutive failures after which the service is declared unhealthy.
func WaitHealthy(ctx context.Context, prober Prober, hc stack.Healthcheck, service string) error {
	hc = hc.WithDefaults()
	l := slog.With("context", "health", "service", service)

	if hc.StartPeriod > 0 {
		l.Debug("waiting out the start period", "start_period", hc.StartPeriod)
		if err := sleepCtx(ctx, hc.StartPeriod); err != nil {
			return err
		}
	}

	failures := 0
	for {
		probeCtx, cancel := context.WithTimeout(ctx, hc.Timeout)
		err := prober.Probe(probeCtx)
		cancel()

		if err == nil {
			l.Info("service is healthy")
			return nil
		}

		failures++
		l.Debug("health probe failed", "failures", failures, "retries", hc.Retries, "error", err)
		if failures >= hc.Retries {
			return fmt.Errorf("service %s did not become healthy after %d probes: %w", service, failures, err)
		}

		if err := sleepCtx(ctx, hc.Interval); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
