// Package service композирует лимитер, хранилище ссылок и агрегатор
// аналитики в операцию «перейти по короткой ссылке».
package service

//go:generate mockgen -source=resolver.go -destination=../mocks/resolver_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/linkdash/linkdash/internal/model"
	"github.com/linkdash/linkdash/internal/ratelimit"
)

var (
	// ErrNotFound — алиас неизвестен, выключен или просрочен.
	ErrNotFound = errors.New("link not found")
	// ErrRateLimited — клиент превысил лимит и включён режим enforce.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// LinkResolver — резолв алиаса в хранилище ссылок.
type LinkResolver interface {
	Resolve(alias string) (*model.Link, error)
}

// Limiter — admission control перед резолвом.
type Limiter interface {
	Allow(clientKey string) ratelimit.Decision
}

// ClickRecorder — запись клика в агрегатор аналитики.
type ClickRecorder interface {
	RecordClick(ctx context.Context, alias string, overrides *model.ClickOverrides) error
}

// Resolver обслуживает горячий путь резолва.
type Resolver struct {
	links   LinkResolver
	limiter Limiter
	clicks  ClickRecorder
	logger  *zap.Logger

	// enforce — жёсткий отказ при превышении лимита. Выключен —
	// поведение эталона: предупреждение в лог, запрос идёт дальше.
	enforce bool
}

// NewResolver создаёт сервис резолва.
func NewResolver(links LinkResolver, limiter Limiter, clicks ClickRecorder, logger *zap.Logger, enforce bool) *Resolver {
	return &Resolver{
		links:   links,
		limiter: limiter,
		clicks:  clicks,
		logger:  logger,
		enforce: enforce,
	}
}

// Visit резолвит алиас для клиента clientKey и фиксирует клик.
// Возвращает целевой URL для редиректа.
//
// Отказ лимитера в любом режиме не трогает состояние: до записи клика
// дело доходит только после успешного резолва.
func (r *Resolver) Visit(ctx context.Context, clientKey, alias string, overrides *model.ClickOverrides) (string, error) {
	dec := r.limiter.Allow(clientKey)
	if !dec.Allowed {
		if r.enforce {
			return "", fmt.Errorf("%w: retry after %s", ErrRateLimited, dec.RetryAfter)
		}
		r.logger.Warn("rate limit exceeded",
			zap.String("client", clientKey),
			zap.Duration("retry_after", dec.RetryAfter),
		)
	}

	link, err := r.links.Resolve(alias)
	if err != nil {
		return "", fmt.Errorf("resolve alias: %w", err)
	}
	if link == nil {
		return "", ErrNotFound
	}

	// Ошибка записи клика не роняет редирект: аналитика best-effort.
	if err := r.clicks.RecordClick(ctx, alias, overrides); err != nil {
		r.logger.Warn("failed to record click", zap.String("alias", alias), zap.Error(err))
	}

	return link.OriginalURL, nil
}
