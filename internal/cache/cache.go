// Package cache — инжектируемая key-value абстракция для счётчиков IDS
// и блокировок входа. Передаётся в сервисы явно, не глобально:
// тесты подменяют её in-memory реализацией с фиктивными часами.
package cache

import (
	"context"
	"time"
)

// KeyValue — минимальный контракт: get / set-with-ttl / incr / del.
type KeyValue interface {
	// Get возвращает значение или "" без ошибки, если ключа нет.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr атомарно увеличивает счётчик и возвращает новое значение.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire выставляет TTL существующему ключу.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
