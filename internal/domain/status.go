package domain

import "slices"

// ChargeStatus represents the internal state of a charge in its lifecycle
type ChargeStatus string

const (
	StatusCreated                 ChargeStatus = "CREATED"
	StatusEnteringCardDetails     ChargeStatus = "ENTERING_CARD_DETAILS"
	StatusAuthorisationReady      ChargeStatus = "AUTHORISATION_READY"
	StatusAuthorisationSuccess    ChargeStatus = "AUTHORISATION_SUCCESS"
	StatusAuthorisationRejected   ChargeStatus = "AUTHORISATION_REJECTED"
	StatusAuthorisationError      ChargeStatus = "AUTHORISATION_ERROR"
	StatusAuthorisation3DSNeeded  ChargeStatus = "AUTHORISATION_3DS_REQUIRED"
	StatusAwaitingCaptureRequest  ChargeStatus = "AWAITING_CAPTURE_REQUEST"
	StatusCaptureApproved         ChargeStatus = "CAPTURE_APPROVED"
	StatusCaptureSubmitted        ChargeStatus = "CAPTURE_SUBMITTED"
	StatusCaptured                ChargeStatus = "CAPTURED"
	StatusCaptureError            ChargeStatus = "CAPTURE_ERROR"
	StatusExpired                 ChargeStatus = "EXPIRED"
)

// transitions is the edge table of the charge state machine. A requested
// transition that is not listed here is a conflict, never applied.
var transitions = map[ChargeStatus][]ChargeStatus{
	StatusCreated:             {StatusEnteringCardDetails, StatusExpired},
	StatusEnteringCardDetails: {StatusAuthorisationReady, StatusExpired},
	StatusAuthorisationReady: {
		StatusAuthorisationSuccess,
		StatusAuthorisationRejected,
		StatusAuthorisationError,
		StatusAuthorisation3DSNeeded,
		StatusExpired,
	},
	StatusAuthorisation3DSNeeded: {
		StatusAuthorisationSuccess,
		StatusAuthorisationRejected,
		StatusAuthorisationError,
		StatusExpired,
	},
	StatusAuthorisationSuccess: {
		StatusAwaitingCaptureRequest,
		StatusCaptureApproved,
		StatusExpired,
	},
	StatusAwaitingCaptureRequest: {
		StatusCaptureApproved,
		StatusCaptureSubmitted,
		StatusExpired,
	},
	StatusCaptureApproved:  {StatusCaptureSubmitted},
	StatusCaptureSubmitted: {StatusCaptured, StatusCaptureApproved, StatusCaptureError},
}

// CanTransition reports whether from -> to is an edge of the state machine.
// The approval statuses are idempotent sources for themselves so that a
// repeated capture-approval request succeeds without a second write.
func CanTransition(from, to ChargeStatus) bool {
	if from == to && (to == StatusCaptureApproved || to == StatusAwaitingCaptureRequest) {
		return true
	}
	return slices.Contains(transitions[from], to)
}

// IsTerminal reports whether no further transition can leave this status.
func (s ChargeStatus) IsTerminal() bool {
	switch s {
	case StatusCaptured, StatusCaptureError, StatusExpired,
		StatusAuthorisationRejected, StatusAuthorisationError:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the status represents a failed payment. Used to
// decide when the can_retry flag is meaningful for agreement charges.
func (s ChargeStatus) IsFailure() bool {
	switch s {
	case StatusAuthorisationRejected, StatusAuthorisationError,
		StatusCaptureError, StatusExpired:
		return true
	default:
		return false
	}
}

// CaptureReadyStatuses are picked up by the capture processor.
var CaptureReadyStatuses = []ChargeStatus{
	StatusAwaitingCaptureRequest,
	StatusCaptureApproved,
}

// ExpirableStatuses are swept to EXPIRED once past the configured age.
// Everything before capture approval is expirable; an approved capture is
// committed and must run to completion.
var ExpirableStatuses = []ChargeStatus{
	StatusCreated,
	StatusEnteringCardDetails,
	StatusAuthorisationReady,
	StatusAuthorisationSuccess,
	StatusAuthorisation3DSNeeded,
	StatusAwaitingCaptureRequest,
}
