package service

import (
	"context"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/repository"
)

type ledgerService struct {
	ledgerRepo repository.LedgerRepository
}

func NewLedgerService(ledgerRepo repository.LedgerRepository) LedgerService {
	return &ledgerService{ledgerRepo: ledgerRepo}
}

func (s *ledgerService) GetAccount(ctx context.Context, guestID int64) (*domain.GuestAccount, error) {
	return s.ledgerRepo.GetAccountByGuest(ctx, guestID)
}

func (s *ledgerService) GetTransactions(ctx context.Context, guestID int64, page, pageSize int) ([]domain.LedgerTransaction, int64, error) {
	account, err := s.ledgerRepo.GetAccountByGuest(ctx, guestID)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.ledgerRepo.ListTransactions(ctx, account.ID, page, pageSize)
}
