package domain

import "time"

// ChargeEvent is one entry of a charge's immutable history. Events are
// appended in the same transaction as the status write that caused them.
type ChargeEvent struct {
	ID        int64
	ChargeID  int64
	Status    ChargeStatus
	CreatedAt time.Time
}

// GatewayCredentialState is the lifecycle state of a gateway account
// credential. Credentials are read-only to this service; exactly one may
// be ACTIVE per (account, provider).
type GatewayCredentialState string

const (
	CredentialCreated GatewayCredentialState = "CREATED"
	CredentialActive  GatewayCredentialState = "ACTIVE"
	CredentialRetired GatewayCredentialState = "RETIRED"
)

// GatewayAccountCredential identifies one credential set at a payment
// provider for a gateway account.
type GatewayAccountCredential struct {
	ID               int64
	GatewayAccountID int64
	PaymentProvider  string
	State            GatewayCredentialState
	CreatedAt        time.Time
}
