// Package store владеет каноническим набором ссылок и производным
// кэшем alias → Link для O(1) резолва.
//
// Кэш обновляется в той же критической секции, что и канонический
// набор: ни один читатель не увидит запись без кэша или кэш без записи.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkdash/linkdash/internal/model"
	"github.com/linkdash/linkdash/internal/util"
)

// Ошибки уровня хранилища.
var (
	// ErrEmptyURL — создание ссылки без целевого URL.
	ErrEmptyURL = errors.New("original url is empty")
	// ErrAliasTaken — алиас уже занят другой ссылкой (активной или нет).
	ErrAliasTaken = errors.New("alias already in use")
	// ErrAliasSpace — бюджет попыток генерации алиаса исчерпан.
	ErrAliasSpace = errors.New("alias generation attempts exhausted")
)

const (
	defaultAliasLength   = 6
	defaultAliasAttempts = 24
	// Каждые widenEvery коллизий длина кандидата растёт на один символ.
	widenEvery = 8
)

// Repository определяет методы долговременного хранилища ссылок.
// В режиме memory репозитория нет, канонический набор живёт в памяти.
type Repository interface {
	SaveLink(ctx context.Context, link *model.Link) error
	DeleteLink(ctx context.Context, id string) error
	SetLinkActive(ctx context.Context, id string, active bool) error
	ListLinks(ctx context.Context) ([]*model.Link, error)
}

// Options настраивает Store. Нулевые значения заменяются умолчаниями.
type Options struct {
	AliasLength   int
	AliasAttempts int
	Rand          *rand.Rand       // источник случайности для алиасов
	Now           func() time.Time // часы, подменяются в тестах
}

// Store потокобезопасное хранилище ссылок.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*model.Link // канонический набор
	byAlias map[string]*model.Link // производный кэш

	repo   Repository // nil в режиме memory
	logger *zap.Logger

	aliasLength   int
	aliasAttempts int
	rng           *rand.Rand
	now           func() time.Time
}

// New создаёт Store. repo может быть nil (режим memory).
func New(repo Repository, logger *zap.Logger, opts Options) *Store {
	if opts.AliasLength <= 0 {
		opts.AliasLength = defaultAliasLength
	}
	if opts.AliasAttempts <= 0 {
		opts.AliasAttempts = defaultAliasAttempts
	}
	if opts.Rand == nil {
		opts.Rand = util.NewRand()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		byID:          make(map[string]*model.Link),
		byAlias:       make(map[string]*model.Link),
		repo:          repo,
		logger:        logger,
		aliasLength:   opts.AliasLength,
		aliasAttempts: opts.AliasAttempts,
		rng:           opts.Rand,
		now:           opts.Now,
	}
}

// Warm загружает канонический набор из репозитория в кэш.
// Вызывается один раз при старте в режиме database.
func (s *Store) Warm(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	links, err := s.repo.ListLinks(ctx)
	if err != nil {
		return fmt.Errorf("warm link cache: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range links {
		s.byID[l.ID] = l
		s.byAlias[l.Alias] = l
	}
	s.logger.Info("link cache warmed", zap.Int("links", len(links)))
	return nil
}

// Create создаёт ссылку. Пустой alias означает автогенерацию.
// expiresAt == nil означает бессрочную ссылку.
func (s *Store) Create(ctx context.Context, originalURL, alias string, expiresAt *time.Time, owner string) (*model.Link, error) {
	if originalURL == "" {
		return nil, ErrEmptyURL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if alias != "" {
		if _, taken := s.byAlias[alias]; taken {
			return nil, fmt.Errorf("%w: %q", ErrAliasTaken, alias)
		}
	} else {
		generated, err := s.generateAlias()
		if err != nil {
			return nil, err
		}
		alias = generated
	}

	link := &model.Link{
		ID:          uuid.NewString(),
		OriginalURL: originalURL,
		Alias:       alias,
		CreatedAt:   s.now(),
		ExpiresAt:   expiresAt,
		Active:      true,
		Owner:       owner,
	}

	// Сначала долговременная запись: при ошибке кэш не трогаем.
	if s.repo != nil {
		if err := s.repo.SaveLink(ctx, link); err != nil {
			return nil, fmt.Errorf("save link: %w", err)
		}
	}

	s.byID[link.ID] = link
	s.byAlias[link.Alias] = link
	return clone(link), nil
}

// clone возвращает копию записи. Читатели никогда не держат указатель
// на изменяемую запись канонического набора: SetActive правит запись
// под блокировкой, а выданные наружу копии остаются неизменными.
func clone(l *model.Link) *model.Link {
	c := *l
	return &c
}

// generateAlias подбирает свободный алиас. Бюджет попыток ограничен;
// после каждых widenEvery коллизий длина кандидата растёт на единицу.
// Вызывающий держит s.mu.
func (s *Store) generateAlias() (string, error) {
	for attempt := 0; attempt < s.aliasAttempts; attempt++ {
		length := s.aliasLength + attempt/widenEvery
		candidate := util.RandomAlias(s.rng, length)
		if _, taken := s.byAlias[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrAliasSpace, s.aliasAttempts)
}

// Delete удаляет ссылку по id. Отсутствие записи — не ошибка.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.byID[id]
	if !ok {
		return nil
	}

	if s.repo != nil {
		if err := s.repo.DeleteLink(ctx, id); err != nil {
			return fmt.Errorf("delete link: %w", err)
		}
	}

	delete(s.byID, id)
	delete(s.byAlias, link.Alias)
	return nil
}

// SetActive включает или выключает ссылку, не удаляя запись.
// Выключенная ссылка не резолвится, но остаётся в каноническом наборе
// и держит свой алиас занятым.
func (s *Store) SetActive(ctx context.Context, id string, active bool) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.byID[id]
	if !ok {
		return nil, nil
	}

	if s.repo != nil {
		if err := s.repo.SetLinkActive(ctx, id, active); err != nil {
			return nil, fmt.Errorf("set link active: %w", err)
		}
	}

	link.Active = active
	return clone(link), nil
}

// Resolve возвращает ссылку по алиасу за O(1).
// (nil, nil) — алиас неизвестен, ссылка выключена или просрочена.
// Резолв никогда не изменяет запись: просроченные ссылки остаются
// в хранилище до явного удаления.
func (s *Store) Resolve(alias string) (*model.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.byAlias[alias]
	if !ok || !link.Resolvable(s.now()) {
		return nil, nil
	}
	return clone(link), nil
}

// Lookup возвращает запись по алиасу без проверок активности и срока.
// Используется агрегатором аналитики для валидации linkId.
func (s *Store) Lookup(alias string) (*model.Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.byAlias[alias]
	if !ok {
		return nil, false
	}
	return clone(link), true
}

// Get возвращает запись по id.
func (s *Store) Get(id string) (*model.Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return clone(link), true
}

// ListAll возвращает копии всех ссылок, новые первыми.
func (s *Store) ListAll() []*model.Link {
	s.mu.RLock()
	links := make([]*model.Link, 0, len(s.byID))
	for _, l := range s.byID {
		links = append(links, clone(l))
	}
	s.mu.RUnlock()

	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.After(links[j].CreatedAt)
		}
		return links[i].Alias < links[j].Alias
	})
	return links
}
