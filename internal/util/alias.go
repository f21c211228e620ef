package util

import (
	"math/rand"
	"strings"
	"time"
)

// Alphabet — алфавит для генерации алиасов: строчные буквы и цифры,
// без паддинга, url-safe.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomAlias генерирует случайный алиас заданной длины.
// Проверка на коллизии — ответственность вызывающего.
func RandomAlias(rng *rand.Rand, length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(Alphabet[rng.Intn(len(Alphabet))])
	}
	return b.String()
}

// NewRand возвращает генератор случайных чисел, пригодный для
// генерации алиасов. Не криптографический: алиасы не секрет.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// ParseExpiry разбирает опциональное время истечения из RFC 3339.
// Пустая строка означает бессрочную ссылку.
func ParseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
