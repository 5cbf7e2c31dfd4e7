package remote

import (
	"context"
	"sync"

	"osryn.bank/internal/ledger"
)

// Service adapts the REST client to ledger.Service. The API authenticates
// every request, so the adapter remembers the credentials of accounts it
// registered or authenticated; operations on any other account fail with
// ledger.ErrInvalidCredentials.
type Service struct {
	client *Client

	mu       sync.RWMutex
	sessions map[string]Credentials // account id -> credentials
}

var _ ledger.Service = (*Service)(nil)

func NewService(client *Client) *Service {
	return &Service{client: client, sessions: make(map[string]Credentials)}
}

func (s *Service) remember(id string, cr Credentials) {
	s.mu.Lock()
	s.sessions[id] = cr
	s.mu.Unlock()
}

func (s *Service) session(id string) (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cr, ok := s.sessions[id]
	if !ok {
		return Credentials{}, ledger.ErrInvalidCredentials
	}
	return cr, nil
}

func (s *Service) CreateAccount(ctx context.Context, in ledger.NewAccount) (ledger.Account, error) {
	acc, err := s.client.Register(ctx, in)
	if err != nil {
		return ledger.Account{}, err
	}
	s.remember(acc.ID, Credentials{Username: in.Username, Secret: in.Secret})
	return acc, nil
}

func (s *Service) Authenticate(ctx context.Context, username, secret string) (ledger.Account, error) {
	cr := Credentials{Username: username, Secret: secret}
	acc, err := s.client.Login(ctx, cr)
	if err != nil {
		return ledger.Account{}, err
	}
	s.remember(acc.ID, cr)
	return acc, nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (ledger.Account, error) {
	cr, err := s.session(id)
	if err != nil {
		return ledger.Account{}, err
	}
	return s.client.Me(ctx, cr)
}

func (s *Service) UpdateProfile(ctx context.Context, id string, p ledger.Profile) (ledger.Account, error) {
	cr, err := s.session(id)
	if err != nil {
		return ledger.Account{}, err
	}
	return s.client.UpdateProfile(ctx, cr, p)
}

func (s *Service) ChangeSecret(ctx context.Context, id, current, next string) error {
	cr, err := s.session(id)
	if err != nil {
		return err
	}
	cr.Secret = current
	if err := s.client.ChangeSecret(ctx, cr, next); err != nil {
		return err
	}
	cr.Secret = next
	s.remember(id, cr)
	return nil
}

func (s *Service) Deposit(ctx context.Context, id string, amount int64) (ledger.Transaction, error) {
	cr, err := s.session(id)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return s.client.Deposit(ctx, cr, amount)
}

func (s *Service) Withdraw(ctx context.Context, id string, amount int64) (ledger.Transaction, error) {
	cr, err := s.session(id)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return s.client.Withdraw(ctx, cr, amount)
}

func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount int64) (ledger.TransferResult, error) {
	cr, err := s.session(fromID)
	if err != nil {
		return ledger.TransferResult{}, err
	}
	return s.client.Transfer(ctx, cr, toID, amount)
}

func (s *Service) PayBill(ctx context.Context, id, biller string, amount int64) (ledger.Transaction, error) {
	cr, err := s.session(id)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return s.client.PayBill(ctx, cr, biller, amount)
}

func (s *Service) ListTransactions(ctx context.Context, id string) ([]ledger.Transaction, error) {
	cr, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return s.client.Transactions(ctx, cr, 0)
}

func (s *Service) BalanceHistory(ctx context.Context, id string) ([]int64, error) {
	cr, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return s.client.BalanceHistory(ctx, cr)
}
