package store_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkdash/linkdash/internal/model"
	"github.com/linkdash/linkdash/internal/store"
	"github.com/linkdash/linkdash/internal/util"
)

// fakeClock — подменяемые часы для проверки границ срока действия.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStore(clock *fakeClock) *store.Store {
	opts := store.Options{}
	if clock != nil {
		opts.Now = clock.Now
	}
	return store.New(nil, zap.NewNop(), opts)
}

// Тест сохранения и резолва ссылки
func TestCreateAndResolve(t *testing.T) {
	s := newTestStore(nil)

	link, err := s.Create(context.Background(), "https://yandex.ru", "x", nil, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "x", link.Alias)
	assert.True(t, link.Active)
	assert.NotEmpty(t, link.ID)

	got, err := s.Resolve("x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://yandex.ru", got.OriginalURL)
}

func TestCreate_EmptyURL(t *testing.T) {
	s := newTestStore(nil)

	_, err := s.Create(context.Background(), "", "x", nil, "owner-1")
	assert.ErrorIs(t, err, store.ErrEmptyURL)
	assert.Empty(t, s.ListAll())
}

// Конфликт алиаса: вторая ссылка не создаётся, состояние не меняется
func TestCreate_AliasConflict(t *testing.T) {
	s := newTestStore(nil)

	_, err := s.Create(context.Background(), "https://yandex.ru", "taken", nil, "owner-1")
	require.NoError(t, err)

	_, err = s.Create(context.Background(), "https://google.com", "taken", nil, "owner-2")
	assert.ErrorIs(t, err, store.ErrAliasTaken)

	links := s.ListAll()
	require.Len(t, links, 1)
	assert.Equal(t, "https://yandex.ru", links[0].OriginalURL)
}

// Выключенная ссылка держит алиас занятым
func TestCreate_ConflictWithInactive(t *testing.T) {
	s := newTestStore(nil)

	link, err := s.Create(context.Background(), "https://yandex.ru", "held", nil, "owner-1")
	require.NoError(t, err)

	_, err = s.SetActive(context.Background(), link.ID, false)
	require.NoError(t, err)

	_, err = s.Create(context.Background(), "https://google.com", "held", nil, "owner-2")
	assert.ErrorIs(t, err, store.ErrAliasTaken)
}

// Тест генерации алиаса: длина и алфавит
func TestCreate_GeneratedAlias(t *testing.T) {
	s := newTestStore(nil)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		link, err := s.Create(context.Background(), "https://yandex.ru", "", nil, "owner-1")
		require.NoError(t, err)
		assert.Len(t, link.Alias, 6)
		for _, r := range link.Alias {
			assert.Contains(t, util.Alphabet, string(r))
		}
		assert.False(t, seen[link.Alias], "alias %q generated twice", link.Alias)
		seen[link.Alias] = true
	}
}

// constSource всегда выдаёт одно значение: каждый кандидат совпадает
// с предыдущим, что позволяет исчерпать бюджет попыток.
type constSource struct{}

func (constSource) Int63() int64 { return 0 }
func (constSource) Seed(int64)   {}

func TestCreate_AliasSpaceExhausted(t *testing.T) {
	s := store.New(nil, zap.NewNop(), store.Options{
		AliasLength:   3,
		AliasAttempts: 24,
		Rand:          rand.New(constSource{}),
	})

	// Занимаем все кандидаты, которые может выдать constSource:
	// длины 3, 4 и 5 (длина растёт после каждых 8 коллизий).
	for _, alias := range []string{"aaa", "aaaa", "aaaaa"} {
		_, err := s.Create(context.Background(), "https://yandex.ru", alias, nil, "owner-1")
		require.NoError(t, err)
	}

	_, err := s.Create(context.Background(), "https://google.com", "", nil, "owner-1")
	assert.ErrorIs(t, err, store.ErrAliasSpace)
}

// Граница срока действия: строго после expiresAt ссылка не резолвится
func TestResolve_ExpiryBoundary(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: base}
	s := newTestStore(clock)

	past := base.Add(-time.Millisecond)
	future := base.Add(time.Millisecond)

	_, err := s.Create(context.Background(), "https://yandex.ru", "old", &past, "owner-1")
	require.NoError(t, err)
	_, err = s.Create(context.Background(), "https://yandex.ru", "fresh", &future, "owner-1")
	require.NoError(t, err)
	_, err = s.Create(context.Background(), "https://yandex.ru", "exact", &base, "owner-1")
	require.NoError(t, err)

	got, err := s.Resolve("old")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Resolve("fresh")
	require.NoError(t, err)
	assert.NotNil(t, got)

	// ExpiresAt == now — ссылка ещё действительна
	got, err = s.Resolve("exact")
	require.NoError(t, err)
	assert.NotNil(t, got)

	// Часы ушли вперёд: "exact" и "fresh" просрочены,
	// но записи остаются в хранилище до явного удаления.
	clock.now = base.Add(time.Second)
	got, err = s.Resolve("fresh")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Len(t, s.ListAll(), 3)
}

func TestResolve_Inactive(t *testing.T) {
	s := newTestStore(nil)

	link, err := s.Create(context.Background(), "https://yandex.ru", "x", nil, "owner-1")
	require.NoError(t, err)

	_, err = s.SetActive(context.Background(), link.ID, false)
	require.NoError(t, err)

	got, err := s.Resolve("x")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Обратное включение возвращает резолв
	_, err = s.SetActive(context.Background(), link.ID, true)
	require.NoError(t, err)

	got, err = s.Resolve("x")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestDelete_Idempotent(t *testing.T) {
	s := newTestStore(nil)

	link, err := s.Create(context.Background(), "https://yandex.ru", "x", nil, "owner-1")
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), link.ID))

	got, err := s.Resolve("x")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Повторное удаление — no-op, не ошибка
	require.NoError(t, s.Delete(context.Background(), link.ID))
	require.NoError(t, s.Delete(context.Background(), "no-such-id"))
}

// После удаления алиас можно занять заново
func TestDelete_FreesAlias(t *testing.T) {
	s := newTestStore(nil)

	link, err := s.Create(context.Background(), "https://yandex.ru", "x", nil, "owner-1")
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), link.ID))

	_, err = s.Create(context.Background(), "https://google.com", "x", nil, "owner-2")
	require.NoError(t, err)

	got, err := s.Resolve("x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://google.com", got.OriginalURL)
}

// Список отсортирован по времени создания, новые первыми
func TestListAll_Order(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestStore(clock)

	for _, alias := range []string{"first", "second", "third"} {
		_, err := s.Create(context.Background(), "https://yandex.ru/"+alias, alias, nil, "owner-1")
		require.NoError(t, err)
		clock.now = clock.now.Add(time.Minute)
	}

	links := s.ListAll()
	require.Len(t, links, 3)
	assert.Equal(t, "third", links[0].Alias)
	assert.Equal(t, "second", links[1].Alias)
	assert.Equal(t, "first", links[2].Alias)
}

// Инвариант кэша: после любой последовательности create/delete
// множество резолвящихся алиасов совпадает с множеством алиасов
// активных непросроченных ссылок канонического набора.
func TestCacheConsistency(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestStore(clock)
	ctx := context.Background()

	checkInvariant := func() {
		t.Helper()
		canonical := make(map[string]bool)
		for _, l := range s.ListAll() {
			if l.Resolvable(clock.now) {
				canonical[l.Alias] = true
			}
		}
		for _, alias := range []string{"a", "b", "c", "d"} {
			got, err := s.Resolve(alias)
			require.NoError(t, err)
			assert.Equal(t, canonical[alias], got != nil, "alias %q", alias)
		}
	}

	ids := make(map[string]string)

	la, _ := s.Create(ctx, "https://yandex.ru/a", "a", nil, "owner-1")
	ids["a"] = la.ID
	checkInvariant()

	lb, _ := s.Create(ctx, "https://yandex.ru/b", "b", nil, "owner-1")
	ids["b"] = lb.ID
	checkInvariant()

	require.NoError(t, s.Delete(ctx, ids["a"]))
	checkInvariant()

	expiring := clock.now.Add(time.Hour)
	lc, _ := s.Create(ctx, "https://yandex.ru/c", "c", &expiring, "owner-1")
	ids["c"] = lc.ID
	checkInvariant()

	ld, _ := s.Create(ctx, "https://yandex.ru/d", "d", nil, "owner-1")
	ids["d"] = ld.ID
	checkInvariant()

	require.NoError(t, s.Delete(ctx, ids["b"]))
	checkInvariant()

	// "c" просрочилась
	clock.now = clock.now.Add(2 * time.Hour)
	checkInvariant()

	_, err := s.SetActive(ctx, ids["d"], false)
	require.NoError(t, err)
	checkInvariant()
}

// Конкурентные создания не теряют записи и не дублируют алиасы
func TestCreate_Concurrent(t *testing.T) {
	s := newTestStore(nil)
	const workers = 16
	const perWorker = 25

	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perWorker; i++ {
				_, err := s.Create(context.Background(), "https://yandex.ru", "", nil, "owner-1")
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
			}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}

	links := s.ListAll()
	require.Len(t, links, workers*perWorker)

	aliases := make(map[string]bool, len(links))
	for _, l := range links {
		assert.False(t, aliases[l.Alias], "duplicate alias %q", l.Alias)
		aliases[l.Alias] = true
	}
}

func TestModelHelpers(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Millisecond)

	link := &model.Link{Active: true}
	assert.True(t, link.Resolvable(now))

	link.ExpiresAt = &past
	assert.True(t, link.Expired(now))
	assert.False(t, link.Resolvable(now))

	link.ExpiresAt = nil
	link.Active = false
	assert.False(t, link.Resolvable(now))
}

// flakyRepo отказывает в выбранных операциях, остальные проходят.
type flakyRepo struct {
	failSave      bool
	failDelete    bool
	failSetActive bool
}

func (r *flakyRepo) SaveLink(context.Context, *model.Link) error {
	if r.failSave {
		return errors.New("connection refused")
	}
	return nil
}

func (r *flakyRepo) DeleteLink(context.Context, string) error {
	if r.failDelete {
		return errors.New("connection refused")
	}
	return nil
}

func (r *flakyRepo) SetLinkActive(context.Context, string, bool) error {
	if r.failSetActive {
		return errors.New("connection refused")
	}
	return nil
}

func (r *flakyRepo) ListLinks(context.Context) ([]*model.Link, error) { return nil, nil }

// При отказе долговременной записи кэш не меняется
func TestCreate_RepoFailure(t *testing.T) {
	repo := &flakyRepo{failSave: true}
	s := store.New(repo, zap.NewNop(), store.Options{})

	_, err := s.Create(context.Background(), "https://yandex.ru", "x", nil, "owner-1")
	require.Error(t, err)

	got, err := s.Resolve("x")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, s.ListAll())

	// После восстановления репозитория алиас свободен
	repo.failSave = false
	_, err = s.Create(context.Background(), "https://yandex.ru", "x", nil, "owner-1")
	assert.NoError(t, err)
}

func TestDelete_RepoFailure(t *testing.T) {
	repo := &flakyRepo{}
	s := store.New(repo, zap.NewNop(), store.Options{})

	link, err := s.Create(context.Background(), "https://yandex.ru", "x", nil, "owner-1")
	require.NoError(t, err)

	repo.failDelete = true
	require.Error(t, s.Delete(context.Background(), link.ID))

	// Ссылка осталась и резолвится
	got, err := s.Resolve("x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, s.ListAll(), 1)
}

func TestSetActive_RepoFailure(t *testing.T) {
	repo := &flakyRepo{}
	s := store.New(repo, zap.NewNop(), store.Options{})

	link, err := s.Create(context.Background(), "https://yandex.ru", "x", nil, "owner-1")
	require.NoError(t, err)

	repo.failSetActive = true
	_, err = s.SetActive(context.Background(), link.ID, false)
	require.Error(t, err)

	got, err := s.Resolve("x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Active)
}

// Читатели получают копии: последующий SetActive не меняет
// уже выданные наружу записи
func TestReadPathsReturnCopies(t *testing.T) {
	s := newTestStore(nil)

	link, err := s.Create(context.Background(), "https://yandex.ru", "x", nil, "owner-1")
	require.NoError(t, err)

	listed := s.ListAll()
	resolved, err := s.Resolve("x")
	require.NoError(t, err)

	_, err = s.SetActive(context.Background(), link.ID, false)
	require.NoError(t, err)

	assert.True(t, link.Active)
	assert.True(t, listed[0].Active)
	assert.True(t, resolved.Active)

	got, ok := s.Get(link.ID)
	require.True(t, ok)
	assert.False(t, got.Active)
}
