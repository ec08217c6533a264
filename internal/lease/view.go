package lease

import (
	"context"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

// ViewService — read-only доступ к текущим leases для операторов.
type ViewService struct {
	store store.Store
}

// NewViewService создаёт ViewService.
func NewViewService(s store.Store) *ViewService {
	return &ViewService{store: s}
}

// List возвращает все текущие leases; workerID непустой — фильтр по нему.
func (v *ViewService) List(ctx context.Context, workerID string) ([]domain.WorkerLease, error) {
	leases, err := store.ListAs[domain.WorkerLease](ctx, v.store, domain.KindWorkerLease, 0)
	if err != nil {
		return nil, err
	}
	if workerID == "" {
		return leases, nil
	}
	var filtered []domain.WorkerLease
	for _, l := range leases {
		if string(l.WorkerID) == workerID {
			filtered = append(filtered, l)
		}
	}
	return filtered, nil
}
