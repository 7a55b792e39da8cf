package icledger

import "fmt"

// ErrorKind enumerates the ledger service's closed failure taxonomy. The
// orchestrator branches on Kind, so string-flattening these is not allowed.
type ErrorKind string

const (
	KindInsufficientAllowance ErrorKind = "insufficient_allowance"
	KindInsufficientCycles    ErrorKind = "insufficient_cycles"
	KindInsufficientBalance   ErrorKind = "insufficient_balance"
	KindUnauthorized          ErrorKind = "unauthorized"
	KindNetworkError          ErrorKind = "network_error"
	KindNotFound              ErrorKind = "not_found"
	KindGeneric               ErrorKind = "generic"
)

// ServiceError is a typed failure from the bridge orchestrator service.
// Have/Need are populated for the insufficient_* kinds, in cycles or token
// allowance units depending on the kind.
type ServiceError struct {
	Kind    ErrorKind `json:"kind"`
	Have    uint64    `json:"have,omitempty"`
	Need    uint64    `json:"need,omitempty"`
	Message string    `json:"message,omitempty"`
}

func (e *ServiceError) Error() string {
	switch e.Kind {
	case KindInsufficientAllowance:
		return fmt.Sprintf("insufficient allowance: have %d, need %d", e.Have, e.Need)
	case KindInsufficientCycles:
		return fmt.Sprintf("insufficient cycles: have %d, need %d", e.Have, e.Need)
	case KindInsufficientBalance:
		return fmt.Sprintf("insufficient balance: have %d, need %d", e.Have, e.Need)
	case KindUnauthorized:
		return "unauthorized"
	case KindNetworkError:
		if e.Message != "" {
			return fmt.Sprintf("ledger network error: %s", e.Message)
		}
		return "ledger network error"
	case KindNotFound:
		if e.Message != "" {
			return fmt.Sprintf("not found: %s", e.Message)
		}
		return "not found"
	default:
		if e.Message != "" {
			return e.Message
		}
		return "ledger service error"
	}
}

// networkError wraps a transport-level failure into the taxonomy.
func networkError(err error) *ServiceError {
	return &ServiceError{Kind: KindNetworkError, Message: err.Error()}
}
