package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gwpay/connector/internal/domain"
	"github.com/gwpay/connector/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
)

type CredentialRepository struct {
	q persistence.Executor
}

func NewCredentialRepository(db *persistence.DB) *CredentialRepository {
	return &CredentialRepository{q: db.Pool}
}

func (r *CredentialRepository) FindByID(ctx context.Context, credentialID int64) (*domain.GatewayAccountCredential, error) {
	query := `SELECT id, gateway_account_id, payment_provider, state, created_at
			  FROM gateway_account_credentials
			  WHERE id = $1`

	var c domain.GatewayAccountCredential
	err := r.q.QueryRow(ctx, query, credentialID).Scan(
		&c.ID, &c.GatewayAccountID, &c.PaymentProvider, &c.State, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNoActiveCredentialError(0, "")
		}
		return nil, fmt.Errorf("query credential: %w", err)
	}
	return &c, nil
}
