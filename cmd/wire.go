package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/journey-mapper/internal/auth"
	"github.com/sells-group/journey-mapper/internal/classifier"
	"github.com/sells-group/journey-mapper/internal/mapping"
	"github.com/sells-group/journey-mapper/internal/resilience"
	"github.com/sells-group/journey-mapper/internal/source"
	"github.com/sells-group/journey-mapper/internal/store"
	anthropicpkg "github.com/sells-group/journey-mapper/pkg/anthropic"
	"github.com/sells-group/journey-mapper/pkg/hubspot"
	openaipkg "github.com/sells-group/journey-mapper/pkg/openai"
	sfpkg "github.com/sells-group/journey-mapper/pkg/salesforce"
)

// appEnv holds the initialized store, CRM source, and mapping engine.
type appEnv struct {
	Store  store.MappingStore
	Source source.Adapter
	Engine *mapping.Engine
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv builds everything a command needs. Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	if err := cfg.ValidateProviders(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	src, err := initSource()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	cl, err := initClassifier()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	engine := mapping.New(cl, st, mapping.WithCachePolicy(mapping.CachePolicy(cfg.Mapping.CachePolicy)))
	zap.L().Debug("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("source", cfg.Source.Provider),
		zap.String("classifier", cfg.Classifier.Provider),
	)
	return &appEnv{Store: st, Source: src, Engine: engine}, nil
}

func initStore(ctx context.Context) (store.MappingStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "journey.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func retryConfig() resilience.RetryConfig {
	return resilience.FromMillis(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)
}

func initSource() (source.Adapter, error) {
	switch cfg.Source.Provider {
	case "hubspot":
		timeout := time.Duration(cfg.HubSpot.TimeoutSecs) * time.Second
		client := hubspot.NewClient(
			hubspot.WithBaseURL(cfg.HubSpot.BaseURL),
			hubspot.WithRateLimit(cfg.HubSpot.RateLimit),
			hubspot.WithHTTPClient(&http.Client{Timeout: timeout}),
		)
		return source.NewHubSpot(client, initTokens(timeout),
			source.WithProperty(cfg.HubSpot.Property),
			source.WithRetry(retryConfig()),
		), nil
	case "salesforce":
		client, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		return source.NewSalesforce(client, cfg.Salesforce.Object, cfg.Salesforce.Field), nil
	default:
		return nil, eris.Errorf("unsupported source provider: %s", cfg.Source.Provider)
	}
}

// initTokens prefers a static private-app token over the token service.
func initTokens(timeout time.Duration) auth.TokenSource {
	if cfg.Auth.StaticToken != "" {
		return auth.Static(cfg.Auth.StaticToken)
	}
	return auth.NewService(cfg.Auth.TokenURL, auth.WithHTTPClient(&http.Client{Timeout: timeout}))
}

func initSalesforce() (sfpkg.Client, error) {
	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RateLimit)), nil
}

func initClassifier() (mapping.Classifier, error) {
	var next mapping.Classifier
	switch cfg.Classifier.Provider {
	case "anthropic":
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		next = classifier.NewAnthropic(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, cfg.Classifier.Temperature)
	case "openai":
		var opts []openaipkg.Option
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openaipkg.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		client := openaipkg.NewClient(cfg.OpenAI.Key, opts...)
		next = classifier.NewOpenAI(client, cfg.OpenAI.Model, cfg.Classifier.Temperature)
	default:
		return nil, eris.Errorf("unsupported classifier provider: %s", cfg.Classifier.Provider)
	}

	breaker := resilience.NewCircuitBreaker(resilience.FromCircuitConfig(
		"classifier", cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs,
	))
	timeout := time.Duration(cfg.Classifier.TimeoutSecs) * time.Second
	return classifier.NewResilient(next, retryConfig(), breaker, timeout), nil
}
