package service

import (
	"context"
	"strings"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/repository"
)

type CatalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func ParseCatalogKind(s string) (domain.CatalogKind, error) {
	switch k := domain.CatalogKind(s); k {
	case domain.CatalogStaff, domain.CatalogActivities, domain.CatalogTerritories:
		return k, nil
	}
	return "", invalid("catalogo sconosciuto: %s", s)
}

func (s *CatalogService) List(ctx context.Context, kind domain.CatalogKind, activeOnly bool) ([]domain.CatalogEntry, error) {
	rows, err := s.repo.List(ctx, kind, activeOnly)
	if err != nil {
		return nil, storeError("list catalog", err)
	}
	if rows == nil {
		rows = []domain.CatalogEntry{}
	}
	return rows, nil
}

func (s *CatalogService) Create(ctx context.Context, kind domain.CatalogKind, name string) (*domain.CatalogEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("nome mancante")
	}
	entry, err := s.repo.Create(ctx, kind, name)
	if err != nil {
		return nil, storeError("create catalog entry", err)
	}
	return entry, nil
}

// Seed creates the names in kind that are not present yet, comparing
// case-insensitively. It returns how many entries were created.
func (s *CatalogService) Seed(ctx context.Context, kind domain.CatalogKind, names []string) (int, error) {
	existing, err := s.List(ctx, kind, false)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[strings.ToUpper(e.Name)] = true
	}

	created := 0
	for _, name := range names {
		key := strings.ToUpper(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		if _, err := s.Create(ctx, kind, name); err != nil {
			return created, err
		}
		seen[key] = true
		created++
	}
	return created, nil
}
