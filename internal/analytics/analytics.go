// Package analytics ведёт append-only журнал кликов и считает
// сводки по запросу.
//
// Сводки не кэшируются: каждый вызов пересчитывает их из полного
// журнала ссылки. На демо-масштабе это дёшево; при реальном трафике
// естественное развитие — инкрементальная агрегация.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkdash/linkdash/internal/model"
)

// LinkIndex — read-only доступ к кэшу ссылок. Агрегатор валидирует
// linkId на записи, но жизненным циклом ссылок не владеет.
type LinkIndex interface {
	Lookup(alias string) (*model.Link, bool)
}

// ClickRepository — долговременное хранилище кликов (режим database).
type ClickRepository interface {
	SaveClick(ctx context.Context, ev *model.ClickEvent) error
	ListClicks(ctx context.Context) ([]*model.ClickEvent, error)
}

// Aggregator — потокобезопасный агрегатор кликов.
type Aggregator struct {
	mu     sync.RWMutex
	byLink map[string][]model.ClickEvent // порядок внутри ссылки = порядок записи

	links   LinkIndex
	sampler Sampler
	repo    ClickRepository // nil в режиме memory
	logger  *zap.Logger
	now     func() time.Time
}

// New создаёт агрегатор. repo может быть nil.
func New(links LinkIndex, sampler Sampler, repo ClickRepository, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		byLink:  make(map[string][]model.ClickEvent),
		links:   links,
		sampler: sampler,
		repo:    repo,
		logger:  logger,
		now:     time.Now,
	}
}

// Warm загружает журнал кликов из репозитория в память.
// Вызывается один раз при старте в режиме database: иначе после
// рестарта сводки начинались бы с нуля при живой истории в базе.
func (a *Aggregator) Warm(ctx context.Context) error {
	if a.repo == nil {
		return nil
	}
	events, err := a.repo.ListClicks(ctx)
	if err != nil {
		return fmt.Errorf("warm click log: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ev := range events {
		a.byLink[ev.LinkID] = append(a.byLink[ev.LinkID], *ev)
	}
	a.logger.Info("click log warmed", zap.Int("clicks", len(events)))
	return nil
}

// RecordClick добавляет клик по алиасу в журнал.
// Неизвестный алиас — тихий no-op: отсутствие ссылки на горячем пути
// не событие для агрегатора. Поля метаданных берутся из overrides,
// пустые добираются сэмплером.
func (a *Aggregator) RecordClick(ctx context.Context, alias string, overrides *model.ClickOverrides) error {
	link, ok := a.links.Lookup(alias)
	if !ok {
		return nil
	}

	ev := model.ClickEvent{
		ID:        uuid.NewString(),
		LinkID:    link.ID,
		Timestamp: a.now(),
		Country:   a.sampler.Country(),
		City:      a.sampler.City(),
		Device:    a.sampler.Device(),
		Referrer:  a.sampler.Referrer(),
		UserAgent: a.sampler.UserAgent(),
	}
	if overrides != nil {
		if overrides.Country != "" {
			ev.Country = overrides.Country
		}
		if overrides.City != "" {
			ev.City = overrides.City
		}
		if overrides.Device != "" {
			ev.Device = overrides.Device
		}
		if overrides.Referrer != "" {
			ev.Referrer = overrides.Referrer
		}
		if overrides.UserAgent != "" {
			ev.UserAgent = overrides.UserAgent
		}
	}

	// Сначала долговременная запись: при ошибке журнал в памяти
	// не расходится с базой.
	if a.repo != nil {
		if err := a.repo.SaveClick(ctx, &ev); err != nil {
			a.logger.Error("failed to persist click", zap.String("link_id", link.ID), zap.Error(err))
			return fmt.Errorf("save click: %w", err)
		}
	}

	a.mu.Lock()
	a.byLink[link.ID] = append(a.byLink[link.ID], ev)
	a.mu.Unlock()
	return nil
}

// Summarize считает сводку по ссылке из полного журнала её кликов.
// Результат детерминирован и не зависит от порядка журнала.
func (a *Aggregator) Summarize(linkID string) model.AnalyticsSummary {
	a.mu.RLock()
	events := make([]model.ClickEvent, len(a.byLink[linkID]))
	copy(events, a.byLink[linkID])
	a.mu.RUnlock()

	byDate := make(map[string]int)
	byDevice := make(map[string]int)
	byCountry := make(map[string]int)
	byReferrer := make(map[string]int)

	for _, ev := range events {
		byDate[ev.Timestamp.UTC().Format("2006-01-02")]++
		byDevice[string(ev.Device)]++
		byCountry[ev.Country]++
		byReferrer[ev.Referrer]++
	}

	dates := make([]model.DateClicks, 0, len(byDate))
	for date, clicks := range byDate {
		dates = append(dates, model.DateClicks{Date: date, Clicks: clicks})
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Date < dates[j].Date })

	return model.AnalyticsSummary{
		TotalClicks:      len(events),
		ClicksByDate:     dates,
		ClicksByDevice:   sortedBreakdown(byDevice),
		ClicksByCountry:  sortedBreakdown(byCountry),
		ClicksByReferrer: sortedBreakdown(byReferrer),
	}
}

// sortedBreakdown материализует разбивку по убыванию количества,
// при равенстве — по имени. Нулевой элемент всегда «топ» категории.
func sortedBreakdown(counts map[string]int) []model.NameValue {
	out := make([]model.NameValue, 0, len(counts))
	for name, value := range counts {
		out = append(out, model.NameValue{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}
