package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

// Record — документ record store.
type Record struct {
	// ID — глобально уникальный идентификатор записи.
	ID string

	// Kind — вид записи.
	Kind domain.Kind

	// Payload — JSON-документ.
	Payload json.RawMessage

	// CreatedAt / UpdatedAt — служебные времена хранилища.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store — контракт record store (внешний collaborator ядра).
//
// Ядро не предполагает ни multi-document транзакций, ни серверных
// счётчиков: только get/create/update по id и list по kind.
type Store interface {
	// Get возвращает запись по id или ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Create создаёт запись. Возвращает ErrAlreadyExists при конфликте id.
	Create(ctx context.Context, rec Record) error

	// Update перезаписывает payload существующей записи.
	// Возвращает ErrNotFound, если записи нет.
	Update(ctx context.Context, rec Record) error

	// List возвращает записи указанного kind в порядке id.
	// limit <= 0 — без ограничения.
	List(ctx context.Context, kind domain.Kind, limit int) ([]Record, error)
}

// GetAs читает запись и декодирует payload в T.
func GetAs[T any](ctx context.Context, s Store, id string) (*T, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(rec.Payload, &v); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", rec.Kind, err)
	}
	return &v, nil
}

// CreateAs кодирует v и создаёт запись.
func CreateAs(ctx context.Context, s Store, id string, kind domain.Kind, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return s.Create(ctx, Record{ID: id, Kind: kind, Payload: payload})
}

// UpdateAs кодирует v и перезаписывает существующую запись.
func UpdateAs(ctx context.Context, s Store, id string, kind domain.Kind, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return s.Update(ctx, Record{ID: id, Kind: kind, Payload: payload})
}

// ListAs возвращает декодированные payload'ы всех записей kind.
func ListAs[T any](ctx context.Context, s Store, kind domain.Kind, limit int) ([]T, error) {
	recs, err := s.List(ctx, kind, limit)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := json.Unmarshal(rec.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", kind, rec.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
