package llmgateway

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/r3e-network/governance-core/internal/config"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/logger"
	"github.com/r3e-network/governance-core/internal/metrics"
	"github.com/r3e-network/governance-core/internal/resilience"
	"github.com/r3e-network/governance-core/internal/securegw"
	"github.com/r3e-network/governance-core/internal/watchdog"
)

// Gateway is the LLM Gateway: a health-tracked provider registry
// with model mapping and retrying, timed-out dispatch.
type Gateway struct {
	mu        sync.RWMutex
	providers map[string]Provider
	breakers  map[string]*resilience.CircuitBreaker

	modelMappings map[string]string
	defaultModel  string

	cache      HealthCache
	cacheTTL   time.Duration
	retryCfg   resilience.RetryConfig
	reqTimeout time.Duration

	cron    *cron.Cron
	entryID cron.EntryID
	log     *logger.Logger
	metrics *metrics.Metrics
	heart   *watchdog.Heartbeat
}

// SetMetrics attaches a Metrics collector; probes and circuit state
// changes are recorded against it once set.
func (g *Gateway) SetMetrics(m *metrics.Metrics) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.metrics = m
}

// SetHeartbeat ties probeAll's completion to a watchdog.Heartbeat, so the
// health monitor loop's liveness is tracked by actual probe activity rather
// than a synthetic timer.
func (g *Gateway) SetHeartbeat(h *watchdog.Heartbeat) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.heart = h
}

// New builds a Gateway from providers and the resolved LLM configuration.
// modelMappings maps a cloud model name to the local runtime's equivalent.
// When a request names no model, or a local provider has no mapping for it,
// the provider's own default model is used; defaultModel is used only for a
// provider that has none.
func New(cfg config.LLMConfig, providers []Provider, modelMappings map[string]string, defaultModel string, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.NewDefault("llmgateway")
	}
	threshold := cfg.UnhealthyThreshold
	if threshold <= 0 {
		threshold = 3
	}
	cacheTTL := time.Duration(cfg.HealthCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	reqTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if reqTimeout <= 0 {
		reqTimeout = 30 * time.Second
	}
	retryCfg := resilience.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxAttempts = cfg.MaxRetries + 1
	}

	var cache HealthCache
	if cfg.RedisAddr != "" {
		cache = NewRedisCache(cfg.RedisAddr)
	} else {
		cache = newLocalCache()
	}

	g := &Gateway{
		providers:     make(map[string]Provider),
		breakers:      make(map[string]*resilience.CircuitBreaker),
		modelMappings: modelMappings,
		defaultModel:  defaultModel,
		cache:         cache,
		cacheTTL:      cacheTTL,
		retryCfg:      retryCfg,
		reqTimeout:    reqTimeout,
		log:           log,
	}
	if modelMappings == nil {
		g.modelMappings = make(map[string]string)
	}
	for _, p := range providers {
		name := p.Name()
		g.providers[name] = p
		g.breakers[name] = resilience.New(resilience.Config{
			MaxFailures: threshold,
			Timeout:     time.Duration(cfg.HealthCheckIntervalSeconds) * time.Second,
			HalfOpenMax: 1,
			OnStateChange: func(from, to resilience.State) {
				log.WithField("provider", name).WithField("from", from.String()).WithField("to", to.String()).Info("provider health state changed")
				if g.metrics != nil {
					gauge := 0.0
					switch to {
					case resilience.StateHalfOpen:
						gauge = 1
					case resilience.StateOpen:
						gauge = 2
					}
					g.metrics.SetCircuitBreakerState(name, gauge)
				}
			},
		})
	}

	interval := cfg.HealthCheckIntervalSeconds
	if interval <= 0 {
		interval = 60
	}
	g.cron = cron.New()
	id, err := g.cron.AddFunc(every(interval), func() { g.probeAll(context.Background()) })
	if err != nil {
		log.WithField("error", err).Error("failed to schedule health monitor")
	} else {
		g.entryID = id
	}
	return g
}

func every(seconds int) string {
	if seconds < 1 {
		seconds = 1
	}
	return "@every " + time.Duration(seconds*int(time.Second)).String()
}

// Start launches the background health monitor and runs an initial probe
// so provider state is known before the first request arrives.
func (g *Gateway) Start(ctx context.Context) {
	g.probeAll(ctx)
	g.cron.Start()
}

// Stop halts the background health monitor.
func (g *Gateway) Stop() {
	if g.cron != nil {
		g.cron.Stop()
	}
}

// probeAll runs IsAvailable against every registered provider concurrently
// and records the outcome through its circuit breaker and health cache.
func (g *Gateway) probeAll(ctx context.Context) {
	g.mu.RLock()
	providers := make([]Provider, 0, len(g.providers))
	for _, p := range g.providers {
		providers = append(providers, p)
	}
	g.mu.RUnlock()

	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			g.probeOne(ctx, p)
		}(p)
	}
	wg.Wait()

	g.mu.RLock()
	heart := g.heart
	g.mu.RUnlock()
	if heart != nil {
		heart.Beat()
	}
}

func (g *Gateway) probeOne(ctx context.Context, p Provider) {
	g.mu.RLock()
	breaker := g.breakers[p.Name()]
	g.mu.RUnlock()

	_ = breaker.Execute(ctx, func() error {
		if !p.IsAvailable(ctx) {
			return errUnavailable
		}
		return nil
	})
	healthy := breaker.State() != resilience.StateOpen
	g.cache.Set(ctx, p.Name(), healthy, g.cacheTTL)

	if g.metrics != nil {
		result := "healthy"
		if !healthy {
			result = "unhealthy"
		}
		g.metrics.RecordHealthProbe(p.Name(), result)
	}
}

var errUnavailable = &unavailableError{}

type unavailableError struct{}

func (e *unavailableError) Error() string { return "provider health probe failed" }

// Statuses satisfies securegw.ProviderSource: the health-annotated provider
// roster Secure Gateway selects from, in no particular order.
func (g *Gateway) Statuses(ctx context.Context) ([]securegw.ProviderStatus, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]securegw.ProviderStatus, 0, len(g.providers))
	for name, p := range g.providers {
		healthy, ok := g.cache.Get(ctx, name)
		if !ok {
			healthy = g.breakers[name].State() != resilience.StateOpen
		}
		out = append(out, securegw.ProviderStatus{
			Name: name, Kind: p.Kind(), Priority: p.Priority(), Healthy: healthy,
		})
	}
	return out, nil
}

// resolveModel translates a requested model name for the chosen provider:
// local providers look up cloud_model_name → local_model_name; an empty or
// unmapped request falls back to the provider's configured default.
func (g *Gateway) resolveModel(p Provider, requested string) string {
	if requested == "" {
		return g.defaultModelFor(p)
	}
	if p.Kind() == KindLocal {
		if mapped, ok := g.modelMappings[requested]; ok {
			return mapped
		}
		return g.defaultModelFor(p)
	}
	return requested
}

// defaultModelFor substitutes the provider's configured default model,
// falling back to the gateway-wide default when the provider has none.
func (g *Gateway) defaultModelFor(p Provider) string {
	if p.DefaultModel() != "" {
		return p.DefaultModel()
	}
	return g.defaultModel
}

// DispatchRequest names the provider candidates to try, in priority order.
// The first candidate is the selection Secure Gateway made; any remaining
// entries are fallbacks the caller has already confirmed are policy-allowed.
type DispatchRequest struct {
	ProviderCandidates []string
	Model              string
	Prompt             string
	SystemPrompt       string
	Temperature        float64
	MaxTokens          int
}

// Dispatch translates the model name, invokes the first healthy candidate
// with a bounded timeout and retry budget, and falls back through the
// remaining candidates only when a provider is unhealthy.
func (g *Gateway) Dispatch(ctx context.Context, req DispatchRequest) (*LLMResponse, error) {
	if len(req.ProviderCandidates) == 0 {
		return nil, svcerrors.UnavailableProvider("")
	}

	var lastErr error
	for _, name := range req.ProviderCandidates {
		g.mu.RLock()
		p, ok := g.providers[name]
		breaker := g.breakers[name]
		g.mu.RUnlock()
		if !ok {
			lastErr = svcerrors.UnavailableProvider(name)
			continue
		}
		if breaker.State() == resilience.StateOpen {
			lastErr = svcerrors.UnavailableProvider(name)
			continue
		}

		model := g.resolveModel(p, req.Model)
		dispatchCtx, cancel := context.WithTimeout(ctx, g.reqTimeout)
		var resp *LLMResponse
		err := resilience.Retry(dispatchCtx, g.retryCfg, func() error {
			r, genErr := p.Generate(dispatchCtx, GenerateRequest{
				Prompt: req.Prompt, SystemPrompt: req.SystemPrompt, Model: model,
				Temperature: req.Temperature, MaxTokens: req.MaxTokens,
			})
			if genErr != nil {
				return genErr
			}
			resp = r
			return nil
		})
		timedOut := dispatchCtx.Err() != nil
		cancel()

		if err != nil {
			if timedOut {
				return nil, svcerrors.ProviderTimeout(name)
			}
			return nil, svcerrors.ProviderError(name, err)
		}
		if resp.Model == "" {
			resp.Model = model
		}
		return resp, nil
	}
	return nil, lastErr
}
