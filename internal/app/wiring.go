package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"JobCopilot/internal/config"
	"JobCopilot/internal/infrastructure/egress"
	"JobCopilot/internal/infrastructure/events"
	"JobCopilot/internal/infrastructure/platform"
	"JobCopilot/internal/infrastructure/storage"
	"JobCopilot/internal/infrastructure/telegram"
	"JobCopilot/internal/ports"
	"JobCopilot/internal/source"
)

const defaultHTMLTimeout = 20 * time.Second

// buildRegistry registers configured platforms in declaration order, each behind its rate limit.
func buildRegistry(cfg config.Config, pool *egress.Pool, logger *slog.Logger) (*source.Registry, error) {
	registry := source.NewRegistry(logger)
	for _, p := range cfg.Platforms {
		src, err := buildSource(p, pool, logger.With("platform", p.Name))
		if err != nil {
			return nil, err
		}
		registry.Register(source.NewRateLimited(src, p.RateLimit.RPS, p.RateLimit.Burst))
	}
	return registry, nil
}

func buildSource(p config.PlatformConfig, pool *egress.Pool, logger *slog.Logger) (source.Source, error) {
	switch p.Kind {
	case config.KindSynthetic:
		tmpl, ok := platform.TemplateFor(p.Name)
		if !ok {
			return nil, fmt.Errorf("platform %q: no synthetic template with that name", p.Name)
		}
		return platform.NewSynthetic(tmpl, platform.Options{
			Count:       p.Count,
			Total:       p.Total,
			MinDelay:    p.MinDelay,
			MaxDelay:    p.MaxDelay,
			FailureRate: p.FailureRate,
			Seed:        p.Seed,
		}, pool, logger), nil
	case config.KindHTML:
		timeout := p.HTML.Timeout
		if timeout <= 0 {
			timeout = defaultHTMLTimeout
		}
		return platform.NewHTMLBoard(p.Name, p.HTML.BaseURL, selectorsFrom(p.HTML.Selectors),
			&http.Client{Timeout: timeout}, pool, logger), nil
	}
	return nil, fmt.Errorf("platform %q: unknown kind %q", p.Name, p.Kind)
}

func selectorsFrom(s config.SelectorConfig) platform.Selectors {
	return platform.Selectors{
		Item:        s.Item,
		Title:       s.Title,
		Company:     s.Company,
		Location:    s.Location,
		Description: s.Description,
		Salary:      s.Salary,
		Link:        s.Link,
		Date:        s.Date,
		Requirement: s.Requirement,
		Tag:         s.Tag,
		Total:       s.Total,
	}
}

func (a *Application) buildStore(ctx context.Context, cfg config.StorageConfig) (ports.Store, error) {
	switch cfg.Driver {
	case config.StorageRedis:
		client, err := storage.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return storage.NewRedisStore(client, cfg.Namespace), nil
	case config.StoragePostgres:
		pool, err := storage.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		store := storage.NewPostgresStore(pool, cfg.Namespace, cfg.Table)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return storage.NewMemoryStore(), nil
	}
}

// buildPublisher returns nil for the "none" driver; the pipeline skips publishing then.
func (a *Application) buildPublisher(ctx context.Context, cfg config.Config) (ports.EventPublisher, error) {
	switch cfg.Events.Driver {
	case config.EventsKafka:
		pub := events.NewKafkaPublisher(cfg.Events.KafkaBroker, cfg.Events.KafkaTopic)
		a.closers = append(a.closers, pub.Close)
		return pub, nil
	case config.EventsRedis:
		url := cfg.Events.RedisURL
		if url == "" {
			url = cfg.Storage.RedisURL
		}
		client, err := storage.NewRedisClient(ctx, url)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return events.NewRedisPublisher(client, cfg.Events.RedisChannel), nil
	case config.EventsTelegram:
		tg := cfg.Events.Telegram
		return telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.APIBase), nil
	default:
		return nil, nil
	}
}
