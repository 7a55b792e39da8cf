package evm

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrEstimationFailed wraps provider-side gas estimation failures. Callers
// substitute the conservative per-operation fallback from FallbackGas.
var ErrEstimationFailed = errors.New("gas estimation failed")

// ErrWrongNetwork is returned when the provider's chain id does not match the
// configured one.
var ErrWrongNetwork = errors.New("connected to wrong network")

// RevertKind classifies known ERC-721 revert reasons.
type RevertKind string

const (
	RevertNotApprovedOrOwner RevertKind = "not_approved_or_owner"
	RevertIncorrectOwner     RevertKind = "incorrect_owner"
	RevertZeroAddress        RevertKind = "zero_address"
	RevertOther              RevertKind = "other"
)

// TransferError is a failed on-chain transfer with its classified revert reason.
type TransferError struct {
	Kind   RevertKind
	Reason string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("nft transfer failed (%s): %s", e.Kind, e.Reason)
}

// OwnershipMismatchError is returned when the current on-chain owner differs
// from the claimed one.
type OwnershipMismatchError struct {
	Contract common.Address
	TokenID  *big.Int
	Claimed  common.Address
	Actual   common.Address
}

func (e *OwnershipMismatchError) Error() string {
	return fmt.Sprintf("token %s of %s is owned by %s, not %s",
		e.TokenID, e.Contract.Hex(), e.Actual.Hex(), e.Claimed.Hex())
}

// InsufficientFundsError is returned when the wallet's native balance cannot
// cover an operation's estimated fees.
type InsufficientFundsError struct {
	Have *big.Int
	Need *big.Int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient native balance: have %s wei, need %s wei", e.Have, e.Need)
}

// classifyRevert maps known OpenZeppelin ERC-721 revert substrings onto a
// RevertKind. Unknown reasons come back as RevertOther with the raw message.
func classifyRevert(err error) *TransferError {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "not token owner or approved"),
		strings.Contains(lower, "not owner nor approved"),
		strings.Contains(lower, "insufficient approval"):
		return &TransferError{Kind: RevertNotApprovedOrOwner, Reason: msg}
	case strings.Contains(lower, "incorrect owner"):
		return &TransferError{Kind: RevertIncorrectOwner, Reason: msg}
	case strings.Contains(lower, "zero address"):
		return &TransferError{Kind: RevertZeroAddress, Reason: msg}
	default:
		return &TransferError{Kind: RevertOther, Reason: msg}
	}
}
