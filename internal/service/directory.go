package service

import (
	"context"

	"github.com/emekaobi/payvault/internal/domain"
	"github.com/emekaobi/payvault/internal/store"
)

// DirectoryService answers account lookups for the search step of both
// workflows. Read-only.
type DirectoryService struct {
	store store.Store
}

func NewDirectoryService(s store.Store) *DirectoryService {
	return &DirectoryService{store: s}
}

// Search matches the query against account number or id. An empty query
// returns a bounded listing.
func (d *DirectoryService) Search(ctx context.Context, query string) ([]domain.Account, error) {
	return d.store.SearchAccounts(ctx, query)
}

func (d *DirectoryService) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return d.store.GetAccountByNumber(ctx, number)
}

func (d *DirectoryService) GetByUser(ctx context.Context, userID string) (*domain.Account, error) {
	return d.store.GetAccountByUser(ctx, userID)
}
