package service

import (
	"context"

	"github.com/UkralStul/social-articles-service/internal/domain"
)

// toggle переключает наличие ребра любого типа. Проверка и изменение
// выполняются хранилищем атомарно.
func (s *Service) toggle(ctx context.Context, edge domain.Edge) (bool, error) {
	present, err := s.store.ToggleEdge(ctx, edge)
	if err != nil {
		return false, translate(err, edge.Kind.String())
	}
	return present, nil
}
