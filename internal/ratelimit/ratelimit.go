// Package ratelimit реализует пер-клиентский admission control
// на горячем пути резолва.
//
// Семантика — счётчик с фиксированным окном: полный рефилл происходит
// только после истечения всего окна, без плавного пополнения.
// Лимитер никогда не блокирует и не ставит в очередь: отказ сразу
// виден вызывающему, реакция — его политика.
package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

const (
	// DefaultCapacity — запросов на окно по умолчанию.
	DefaultCapacity = 100
	// DefaultWindow — длительность окна по умолчанию.
	DefaultWindow = 60 * time.Second

	// Бакеты шардированы, чтобы независимые клиенты не блокировали
	// друг друга на одном мьютексе.
	shardCount = 32
)

// Decision — результат проверки лимита.
type Decision struct {
	// Allowed — пропущен ли запрос.
	Allowed bool
	// Remaining — токенов осталось в окне после этого запроса.
	Remaining int
	// RetryAfter — через сколько окно откроется; 0, если пропущен.
	RetryAfter time.Duration
}

// bucket — состояние одного клиента. Доступ под мьютексом шарда.
type bucket struct {
	tokens      int
	windowStart time.Time
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// Limiter — потокобезопасный лимитер с бакетом на клиентский ключ.
// Бакеты создаются лениво и не удаляются: таблица ограничена
// кардинальностью ключей, что приемлемо для одного процесса.
type Limiter struct {
	shards   [shardCount]shard
	capacity int
	window   time.Duration
	now      func() time.Time
}

// New создаёт лимитер. Неположительные аргументы заменяются умолчаниями.
func New(capacity int, window time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		capacity: capacity,
		window:   window,
		now:      time.Now,
	}
	for i := range l.shards {
		l.shards[i].buckets = make(map[string]*bucket)
	}
	return l
}

// Allow атомарно выполняет проверку и списание одного токена
// для клиентского ключа.
func (l *Limiter) Allow(clientKey string) Decision {
	sh := &l.shards[shardFor(clientKey)]
	now := l.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	b, ok := sh.buckets[clientKey]
	if !ok {
		b = &bucket{tokens: l.capacity, windowStart: now}
		sh.buckets[clientKey] = b
	} else if now.Sub(b.windowStart) > l.window {
		// Окно истекло целиком: полный рефилл, не плавный.
		b.tokens = l.capacity
		b.windowStart = now
	}

	if b.tokens > 0 {
		b.tokens--
		return Decision{Allowed: true, Remaining: b.tokens}
	}

	retry := b.windowStart.Add(l.window).Sub(now)
	if retry < 0 {
		retry = 0
	}
	return Decision{Allowed: false, RetryAfter: retry}
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % shardCount
}
