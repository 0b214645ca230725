package tablestatus

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"floor-designer/internal/layout/models"
)

// ============================================================
// Table Status Source
// ============================================================

// Source читает состояние столов во внешней системе.
type Source interface {
	Lookup(ctx context.Context, tableID string) (models.TableStatus, bool, error)
}

// RedisSource читает hash "table:<id>" с полями status и capacity.
type RedisSource struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSource(client redis.UniversalClient) *RedisSource {
	return &RedisSource{client: client, prefix: "table:"}
}

func (s *RedisSource) Lookup(ctx context.Context, tableID string) (models.TableStatus, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.prefix+tableID).Result()
	if err != nil {
		return models.TableStatus{}, false, fmt.Errorf("lookup table %s: %w", tableID, err)
	}
	if len(fields) == 0 {
		return models.TableStatus{}, false, nil
	}

	status := models.TableStatus{Status: fields["status"]}
	if raw := fields["capacity"]; raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			return models.TableStatus{}, false, fmt.Errorf("table %s capacity %q: %w", tableID, raw, err)
		}
		status.Capacity = capacity
	}
	return status, true, nil
}

// StaticSource держит статусы в памяти (разработка и тесты).
type StaticSource struct {
	mu     sync.RWMutex
	tables map[string]models.TableStatus
}

func NewStaticSource(tables map[string]models.TableStatus) *StaticSource {
	cp := make(map[string]models.TableStatus, len(tables))
	for k, v := range tables {
		cp[k] = v
	}
	return &StaticSource{tables: cp}
}

func (s *StaticSource) Set(tableID string, status models.TableStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[tableID] = status
}

func (s *StaticSource) Lookup(_ context.Context, tableID string) (models.TableStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.tables[tableID]
	return st, ok, nil
}

// ============================================================
// Decoration
// ============================================================

// Decorate возвращает состояние столов для привязанных объектов.
// Ошибки источника игнорируются: состояние нужно только для отображения.
func Decorate(ctx context.Context, src Source, items []models.PlacedItem) map[string]models.TableStatus {
	out := make(map[string]models.TableStatus)
	if src == nil {
		return out
	}
	for _, item := range items {
		assoc, ok := item.Kind.(models.Associated)
		if !ok {
			continue
		}
		st, found, err := src.Lookup(ctx, assoc.ExternalID)
		if err != nil || !found {
			continue
		}
		out[item.ID] = st
	}
	return out
}
