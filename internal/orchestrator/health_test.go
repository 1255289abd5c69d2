package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AnotherFullstackDev/stack-ctl/internal/stack"
	"github.com/stretchr/testify/require"
)

type scriptedProber struct {
	results []error
	calls   int
}

func (p *scriptedProber) Probe(ctx context.Context) error {
	if p.calls >= len(p.results) {
		p.calls++
		return fmt.Errorf("probe script exhausted")
	}
	err := p.results[p.calls]
	p.calls++
	return err
}

func TestWaitHealthy(t *testing.T) {
	r := require.New(t)

	hc := stack.Healthcheck{
		Interval: time.Millisecond,
		Timeout:  50 * time.Millisecond,
		Retries:  3,
	}

	t.Run("must pass on the first healthy probe", func(t *testing.T) {
		p := &scriptedProber{results: []error{nil}}
		r.NoError(WaitHealthy(context.Background(), p, hc, "backend"))
		r.Equal(1, p.calls)
	})

	t.Run("must retry failed probes up to the retry budget", func(t *testing.T) {
		p := &scriptedProber{results: []error{fmt.Errorf("refused"), fmt.Errorf("refused"), nil}}
		r.NoError(WaitHealthy(context.Background(), p, hc, "backend"))
		r.Equal(3, p.calls)
	})

	t.Run("must fail after retries consecutive failures", func(t *testing.T) {
		p := &scriptedProber{results: []error{
			fmt.Errorf("refused"), fmt.Errorf("refused"), fmt.Errorf("refused"), fmt.Errorf("refused"),
		}}
		err := WaitHealthy(context.Background(), p, hc, "backend")
		r.Error(err)
		r.Contains(err.Error(), "did not become healthy")
		r.Equal(3, p.calls)
	})

	t.Run("must stop when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		slow := hc
		slow.StartPeriod = time.Minute
		err := WaitHealthy(ctx, &scriptedProber{}, slow, "backend")
		r.ErrorIs(err, context.Canceled)
	})
}

func TestNewProber(t *testing.T) {
	r := require.New(t)

	t.Run("must build a command prober for exec healthchecks", func(t *testing.T) {
		e := newFakeEngine()
		p, err := NewProber(e, "webshop-database", stack.Healthcheck{Cmd: []string{"pg_isready"}})
		r.NoError(err)

		r.NoError(p.Probe(context.Background()))
		r.Equal(1, e.execCount["webshop-database"])
	})

	t.Run("must build an http prober for endpoint healthchecks", func(t *testing.T) {
		p, err := NewProber(nil, "webshop-backend", stack.Healthcheck{HTTP: "http://localhost:8080/actuator/health"})
		r.NoError(err)
		r.IsType(&httpProber{}, p)
	})

	t.Run("must reject empty healthchecks", func(t *testing.T) {
		_, err := NewProber(nil, "webshop-backend", stack.Healthcheck{})
		r.Error(err)
	})
}
