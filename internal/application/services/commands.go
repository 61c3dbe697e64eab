package services

// CreateChargeCommand carries the caller-supplied attributes of a new
// charge. Amount is in the smallest currency unit.
type CreateChargeCommand struct {
	GatewayAccountID    int64
	Amount              int64
	Reference           string
	Description         string
	Email               string
	ReturnURL           string
	AuthorisationMode   string
	DelayedCapture      bool
	PaymentProvider     string // optional override; normally derived from the account's credentials
	Metadata            map[string]string
	AgreementID         string
	PaymentInstrumentID string
}

// TelephoneChargeCommand admits a charge that was taken over the phone and
// already resolved at the provider. ProcessorID and ProviderID are the
// caller's identifiers; (GatewayAccountID, ProviderID) is the idempotency
// key.
type TelephoneChargeCommand struct {
	GatewayAccountID int64
	Amount           int64
	Reference        string
	Description      string
	ProcessorID      string
	ProviderID       string
	OutcomeStatus    string // success | failed | error
	OutcomeCode      string // e.g. P0010, P0030; coarser external code derived from it
	Metadata         map[string]string
}

// BatchResult is the externally visible outcome of one background cycle.
type BatchResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}
