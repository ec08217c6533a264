package workers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/clock"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

// ErrIncidentNotFound — инцидент не существует.
var ErrIncidentNotFound = errors.New("incident not found")

// ErrIncidentSettled — инцидент уже в финальном для операции статусе.
var ErrIncidentSettled = errors.New("incident already settled")

// IncidentService — операторские операции над инцидентами.
type IncidentService struct {
	store store.Store
	clock clock.Clock
}

// NewIncidentService создаёт IncidentService.
func NewIncidentService(s store.Store, c clock.Clock) *IncidentService {
	if c == nil {
		c = clock.System()
	}
	return &IncidentService{store: s, clock: c}
}

// Get возвращает инцидент по id.
func (s *IncidentService) Get(ctx context.Context, id string) (*domain.Incident, error) {
	incident, err := store.GetAs[domain.Incident](ctx, s.store, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIncidentNotFound, id)
		}
		return nil, err
	}
	return incident, nil
}

// List возвращает инциденты, опционально отфильтрованные по статусу,
// свежие первыми.
func (s *IncidentService) List(ctx context.Context, status domain.IncidentStatus) ([]domain.Incident, error) {
	incidents, err := store.ListAs[domain.Incident](ctx, s.store, domain.KindIncident, 0)
	if err != nil {
		return nil, err
	}
	if status != "" {
		filtered := incidents[:0]
		for i := range incidents {
			if incidents[i].Status == status {
				filtered = append(filtered, incidents[i])
			}
		}
		incidents = filtered
	}
	sort.Slice(incidents, func(i, j int) bool {
		return incidents[i].CreatedAt.After(incidents[j].CreatedAt)
	})
	return incidents, nil
}

// Acknowledge переводит open инцидент в acked.
func (s *IncidentService) Acknowledge(ctx context.Context, id string) (*domain.Incident, error) {
	incident, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident.Status != domain.IncidentStatusOpen {
		return nil, fmt.Errorf("%w: %s is %s", ErrIncidentSettled, id, incident.Status)
	}

	now := s.clock.Now()
	incident.Status = domain.IncidentStatusAcked
	incident.AckedAt = &now
	if err := store.UpdateAs(ctx, s.store, id, domain.KindIncident, incident); err != nil {
		return nil, err
	}
	return incident, nil
}

// Resolve переводит open или acked инцидент в resolved.
// После resolve условие может быть поднято заново как новый инцидент.
func (s *IncidentService) Resolve(ctx context.Context, id string) (*domain.Incident, error) {
	incident, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident.Status == domain.IncidentStatusResolved {
		return nil, fmt.Errorf("%w: %s is resolved", ErrIncidentSettled, id)
	}

	now := s.clock.Now()
	incident.Status = domain.IncidentStatusResolved
	incident.ResolvedAt = &now
	if err := store.UpdateAs(ctx, s.store, id, domain.KindIncident, incident); err != nil {
		return nil, err
	}
	return incident, nil
}

// IncidentSummary — сводка инцидентов для операторского обзора.
type IncidentSummary struct {
	Total      int                              `json:"total"`
	ByStatus   map[domain.IncidentStatus]int    `json:"byStatus"`
	BySeverity map[domain.IncidentSeverity]int  `json:"bySeverity"`
	ByType     map[domain.IncidentType]int      `json:"byType"`
}

// Summary агрегирует инциденты по статусу, серьёзности и типу.
func (s *IncidentService) Summary(ctx context.Context) (*IncidentSummary, error) {
	incidents, err := store.ListAs[domain.Incident](ctx, s.store, domain.KindIncident, 0)
	if err != nil {
		return nil, err
	}

	summary := &IncidentSummary{
		Total:      len(incidents),
		ByStatus:   make(map[domain.IncidentStatus]int),
		BySeverity: make(map[domain.IncidentSeverity]int),
		ByType:     make(map[domain.IncidentType]int),
	}
	for i := range incidents {
		summary.ByStatus[incidents[i].Status]++
		summary.BySeverity[incidents[i].Severity]++
		summary.ByType[incidents[i].Type]++
	}
	return summary, nil
}
