package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gwpay/connector/internal/domain"
	"github.com/gwpay/connector/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const chargeColumns = `
	id, external_id, status, version,
	gateway_account_id, gateway_account_credential_id, payment_provider,
	authorisation_mode, amount, reference, description, email, return_url,
	metadata, delayed_capture, can_retry,
	agreement_id, payment_instrument_id, gateway_transaction_id,
	processor_id, provider_id, supplemental_error_code,
	card_number_masked, cardholder_name, card_expiry_month, card_expiry_year,
	address_line1, address_line2, address_city, address_postcode, address_country,
	capture_attempts, created_at, capture_submitted_at`

type ChargeRepository struct {
	pool *pgxpool.Pool
	q    persistence.Executor
}

func NewChargeRepository(db *persistence.DB) *ChargeRepository {
	return &ChargeRepository{
		pool: db.Pool,
		q:    db.Pool,
	}
}

// CreateCharge resolves the single ACTIVE credential for the charge's
// account, pins it, inserts the charge, and appends its opening events,
// all inside one transaction. The pinning can therefore never observe a
// half-switched provider.
func (r *ChargeRepository) CreateCharge(ctx context.Context, charge *domain.Charge, providerOverride string, events ...domain.ChargeStatus) error {
	return r.withTx(ctx, func(tx *ChargeRepository) error {
		credential, err := tx.resolveActiveCredential(ctx, charge.GatewayAccountID, providerOverride)
		if err != nil {
			return err
		}
		charge.GatewayAccountCredentialID = credential.ID
		charge.PaymentProvider = credential.PaymentProvider

		query := `INSERT INTO charges (
					external_id, status, version,
					gateway_account_id, gateway_account_credential_id, payment_provider,
					authorisation_mode, amount, reference, description, email, return_url,
					metadata, delayed_capture, can_retry,
					agreement_id, payment_instrument_id, gateway_transaction_id,
					processor_id, provider_id, supplemental_error_code,
					capture_attempts, created_at)
				VALUES ($1, $2, 1, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
						$15, $16, $17, $18, $19, $20, $21, $22)
				RETURNING id`

		err = tx.q.QueryRow(ctx, query,
			charge.ExternalID,
			charge.Status,
			charge.GatewayAccountID,
			charge.GatewayAccountCredentialID,
			charge.PaymentProvider,
			charge.AuthorisationMode,
			charge.Amount,
			charge.Reference,
			charge.Description,
			charge.Email,
			charge.ReturnURL,
			charge.Metadata,
			charge.DelayedCapture,
			charge.CanRetry,
			charge.AgreementID,
			charge.PaymentInstrumentID,
			charge.GatewayTransactionID,
			charge.ProcessorID,
			charge.ProviderID,
			charge.SupplementalErrorCode,
			charge.CaptureAttempts,
			charge.CreatedAt,
		).Scan(&charge.ID)
		if err != nil {
			if persistence.IsUniqueViolation(err) {
				return domain.ErrProviderIDConflict
			}
			return fmt.Errorf("failed to create charge: %w", err)
		}
		charge.Version = 1

		for _, status := range events {
			if err := tx.appendEvent(ctx, charge.ID, status, charge.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ChargeRepository) resolveActiveCredential(ctx context.Context, gatewayAccountID int64, providerOverride string) (*domain.GatewayAccountCredential, error) {
	query := `SELECT id, gateway_account_id, payment_provider, state, created_at
			  FROM gateway_account_credentials
			  WHERE gateway_account_id = $1 AND state = 'ACTIVE'`
	args := []any{gatewayAccountID}
	if providerOverride != "" {
		query += ` AND payment_provider = $2`
		args = append(args, providerOverride)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active credentials: %w", err)
	}
	credentials, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.GatewayAccountCredential, error) {
		var c domain.GatewayAccountCredential
		err := row.Scan(&c.ID, &c.GatewayAccountID, &c.PaymentProvider, &c.State, &c.CreatedAt)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan active credentials: %w", err)
	}

	// Zero rows means no credential to pin; more than one is a data
	// invariant violation, surfaced rather than resolved silently.
	if len(credentials) != 1 {
		return nil, domain.NewNoActiveCredentialError(gatewayAccountID, providerOverride)
	}
	return credentials[0], nil
}

func (r *ChargeRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges WHERE external_id = $1`
	return r.scanOne(ctx, externalID, query, externalID)
}

func (r *ChargeRepository) FindByProviderID(ctx context.Context, gatewayAccountID int64, providerID string) (*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges
			  WHERE gateway_account_id = $1 AND provider_id = $2`
	return r.scanOne(ctx, providerID, query, gatewayAccountID, providerID)
}

// TransitionStatus is the single conditional update every status change
// goes through. The version predicate makes it a compare-and-swap; the
// edge check against the status read at that version keeps every write on
// the state machine's graph.
func (r *ChargeRepository) TransitionStatus(ctx context.Context, chargeID, expectedVersion int64, to domain.ChargeStatus) (*domain.Charge, error) {
	var updated *domain.Charge
	err := r.withTx(ctx, func(tx *ChargeRepository) error {
		var err error
		updated, err = tx.transitionLocked(ctx, chargeID, expectedVersion, to, time.Now().UTC())
		return err
	})
	return updated, err
}

func (r *ChargeRepository) RecordAuthorisationOutcome(ctx context.Context, chargeID, expectedVersion int64, to domain.ChargeStatus, gatewayTransactionID string, card *domain.CardDetails) (*domain.Charge, error) {
	var updated *domain.Charge
	err := r.withTx(ctx, func(tx *ChargeRepository) error {
		var err error
		updated, err = tx.transitionLocked(ctx, chargeID, expectedVersion, to, time.Now().UTC())
		if err != nil {
			return err
		}

		if card == nil {
			card = &domain.CardDetails{}
		}
		query := `UPDATE charges SET
					gateway_transaction_id = NULLIF($1, ''),
					card_number_masked = NULLIF($2, ''), cardholder_name = $3,
					card_expiry_month = $4, card_expiry_year = $5,
					address_line1 = $6, address_line2 = $7, address_city = $8,
					address_postcode = $9, address_country = $10
				  WHERE id = $11`
		_, err = tx.q.Exec(ctx, query,
			gatewayTransactionID,
			card.CardNumber,
			card.CardholderName,
			card.ExpiryMonth,
			card.ExpiryYear,
			card.AddressLine1,
			card.AddressLine2,
			card.City,
			card.Postcode,
			card.Country,
			chargeID,
		)
		if err != nil {
			return fmt.Errorf("failed to record authorisation details: %w", err)
		}
		if gatewayTransactionID != "" {
			updated.GatewayTransactionID = &gatewayTransactionID
		}
		return nil
	})
	return updated, err
}

func (r *ChargeRepository) MarkCaptured(ctx context.Context, chargeID, expectedVersion int64, submittedAt time.Time) (*domain.Charge, error) {
	var updated *domain.Charge
	err := r.withTx(ctx, func(tx *ChargeRepository) error {
		var err error
		updated, err = tx.transitionLocked(ctx, chargeID, expectedVersion, domain.StatusCaptured, submittedAt)
		if err != nil {
			return err
		}
		_, err = tx.q.Exec(ctx,
			`UPDATE charges SET capture_submitted_at = $1 WHERE id = $2`,
			submittedAt, chargeID)
		if err != nil {
			return fmt.Errorf("failed to stamp capture submission: %w", err)
		}
		updated.CaptureSubmittedAt = &submittedAt
		return nil
	})
	return updated, err
}

func (r *ChargeRepository) ScheduleCaptureRetry(ctx context.Context, chargeID, expectedVersion int64) (*domain.Charge, error) {
	var updated *domain.Charge
	err := r.withTx(ctx, func(tx *ChargeRepository) error {
		var err error
		updated, err = tx.transitionLocked(ctx, chargeID, expectedVersion, domain.StatusCaptureApproved, time.Now().UTC())
		if err != nil {
			return err
		}
		err = tx.q.QueryRow(ctx,
			`UPDATE charges SET capture_attempts = capture_attempts + 1
			 WHERE id = $1 RETURNING capture_attempts`,
			chargeID).Scan(&updated.CaptureAttempts)
		if err != nil {
			return fmt.Errorf("failed to bump capture attempts: %w", err)
		}
		return nil
	})
	return updated, err
}

func (r *ChargeRepository) FindChargesForCapture(ctx context.Context, limit int) ([]*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges
			  WHERE status IN ('AWAITING_CAPTURE_REQUEST', 'CAPTURE_APPROVED')
			  ORDER BY created_at ASC
			  LIMIT $1`
	return r.scanMany(ctx, query, limit)
}

func (r *ChargeRepository) FindChargesForExpiry(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges
			  WHERE status = ANY($1)
				AND created_at < $2
			  ORDER BY created_at ASC
			  LIMIT $3`

	statuses := make([]string, len(domain.ExpirableStatuses))
	for i, s := range domain.ExpirableStatuses {
		statuses[i] = string(s)
	}
	return r.scanMany(ctx, query, statuses, createdBefore, limit)
}

func (r *ChargeRepository) UpdateEmail(ctx context.Context, chargeID int64, email string) error {
	cmdTag, err := r.q.Exec(ctx,
		`UPDATE charges SET email = $1 WHERE id = $2`, email, chargeID)
	if err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewChargeNotFoundError(fmt.Sprintf("%d", chargeID))
	}
	return nil
}

func (r *ChargeRepository) UpdateCanRetry(ctx context.Context, chargeID int64, canRetry bool) error {
	cmdTag, err := r.q.Exec(ctx,
		`UPDATE charges SET can_retry = $1 WHERE id = $2`, canRetry, chargeID)
	if err != nil {
		return fmt.Errorf("failed to update can_retry: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewChargeNotFoundError(fmt.Sprintf("%d", chargeID))
	}
	return nil
}

func (r *ChargeRepository) Events(ctx context.Context, chargeID int64) ([]domain.ChargeEvent, error) {
	query := `SELECT id, charge_id, status, created_at
			  FROM charge_events
			  WHERE charge_id = $1
			  ORDER BY id ASC`

	rows, err := r.q.Query(ctx, query, chargeID)
	if err != nil {
		return nil, fmt.Errorf("query charge events: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ChargeEvent, error) {
		var e domain.ChargeEvent
		err := row.Scan(&e.ID, &e.ChargeID, &e.Status, &e.CreatedAt)
		return e, err
	})
}

// transitionLocked performs the guarded status write inside an open
// transaction: verify the edge against the status read at the expected
// version, then "set status, version = version+1 where id and version
// match", then append the event row.
func (r *ChargeRepository) transitionLocked(ctx context.Context, chargeID, expectedVersion int64, to domain.ChargeStatus, at time.Time) (*domain.Charge, error) {
	current, err := r.scanOne(ctx, fmt.Sprintf("%d", chargeID),
		`SELECT `+chargeColumns+` FROM charges WHERE id = $1 FOR UPDATE`, chargeID)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, domain.ErrStaleVersion
	}
	if !domain.CanTransition(current.Status, to) {
		return nil, domain.NewInvalidTransitionError(current.Status, to)
	}

	cmdTag, err := r.q.Exec(ctx,
		`UPDATE charges SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		to, chargeID, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to transition charge: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, domain.ErrStaleVersion
	}

	if err := r.appendEvent(ctx, chargeID, to, at); err != nil {
		return nil, err
	}

	current.Status = to
	current.Version = expectedVersion + 1
	return current, nil
}

func (r *ChargeRepository) appendEvent(ctx context.Context, chargeID int64, status domain.ChargeStatus, at time.Time) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO charge_events (charge_id, status, created_at) VALUES ($1, $2, $3)`,
		chargeID, status, at)
	if err != nil {
		return fmt.Errorf("failed to append charge event: %w", err)
	}
	return nil
}

// withTx executes fn against a repository bound to one transaction.
func (r *ChargeRepository) withTx(ctx context.Context, fn func(tx *ChargeRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	repoWithTx := &ChargeRepository{
		pool: r.pool,
		q:    tx,
	}

	if err := fn(repoWithTx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *ChargeRepository) scanOne(ctx context.Context, lookup string, query string, args ...any) (*domain.Charge, error) {
	row := r.q.QueryRow(ctx, query, args...)
	charge, err := scanCharge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewChargeNotFoundError(lookup)
		}
		return nil, err
	}
	return charge, nil
}

func (r *ChargeRepository) scanMany(ctx context.Context, query string, args ...any) ([]*domain.Charge, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query charges: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Charge, error) {
		return scanCharge(row)
	})
}

// scanCharge scans a pgx.Row into a domain.Charge.
func scanCharge(row pgx.Row) (*domain.Charge, error) {
	var (
		c              domain.Charge
		cardNumber     *string
		cardholderName *string
		expiryMonth    *int
		expiryYear     *int
		addressLine1   *string
		addressLine2   *string
		city           *string
		postcode       *string
		country        *string
	)

	err := row.Scan(
		&c.ID,
		&c.ExternalID,
		&c.Status,
		&c.Version,
		&c.GatewayAccountID,
		&c.GatewayAccountCredentialID,
		&c.PaymentProvider,
		&c.AuthorisationMode,
		&c.Amount,
		&c.Reference,
		&c.Description,
		&c.Email,
		&c.ReturnURL,
		&c.Metadata,
		&c.DelayedCapture,
		&c.CanRetry,
		&c.AgreementID,
		&c.PaymentInstrumentID,
		&c.GatewayTransactionID,
		&c.ProcessorID,
		&c.ProviderID,
		&c.SupplementalErrorCode,
		&cardNumber,
		&cardholderName,
		&expiryMonth,
		&expiryYear,
		&addressLine1,
		&addressLine2,
		&city,
		&postcode,
		&country,
		&c.CaptureAttempts,
		&c.CreatedAt,
		&c.CaptureSubmittedAt,
	)
	if err != nil {
		return nil, err
	}

	if cardNumber != nil {
		c.CardDetails = &domain.CardDetails{
			CardNumber:     *cardNumber,
			CardholderName: deref(cardholderName),
			ExpiryMonth:    derefInt(expiryMonth),
			ExpiryYear:     derefInt(expiryYear),
			AddressLine1:   deref(addressLine1),
			AddressLine2:   deref(addressLine2),
			City:           deref(city),
			Postcode:       deref(postcode),
			Country:        deref(country),
		}
	}
	return &c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
