package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

// Префиксы идентификаторов записей.
const (
	PrefixExecutionTask = "execution-task"
	PrefixExecutionRun  = "execution-run"
	PrefixTaskLog       = "task-log"
	PrefixIncident      = "incident"
)

// NextID выделяет следующий id для kind: сканирует существующие записи,
// находит максимальный числовой суффикс и прибавляет единицу.
//
// Центрального счётчика в store нет, поэтому конкурентное создание
// может выдать дубликат — гонка известна и принята; создание отловит
// её как ErrAlreadyExists, вызывающий может повторить.
func NextID(ctx context.Context, s Store, kind domain.Kind, prefix string) (string, error) {
	recs, err := s.List(ctx, kind, 0)
	if err != nil {
		return "", fmt.Errorf("list %s records: %w", kind, err)
	}

	max := 0
	for _, rec := range recs {
		n, ok := numericSuffix(rec.ID)
		if ok && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%04d", prefix, max+1), nil
}

// numericSuffix извлекает числовой суффикс после последнего дефиса.
func numericSuffix(id string) (int, bool) {
	idx := strings.LastIndex(id, "-")
	if idx < 0 || idx == len(id)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
