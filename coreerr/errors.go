// Package coreerr defines the error taxonomy shared by every component of
// the cross-margin core.
package coreerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the category of a core error.
type Kind int

const (
	// AccountNotFound means the caller referenced an unknown account id.
	AccountNotFound Kind = iota
	// PositionNotFound means the caller referenced an unknown position id.
	PositionNotFound
	// NotEnoughBalance means a balance mutation would cross zero with allow_negative=false.
	NotEnoughBalance
	// AssetNotFound means a required price could not be resolved.
	AssetNotFound
	// MultiError aggregates construction-time failures across many positions.
	MultiError
)

func (k Kind) String() string {
	switch k {
	case AccountNotFound:
		return "account_not_found"
	case PositionNotFound:
		return "position_not_found"
	case NotEnoughBalance:
		return "not_enough_balance"
	case AssetNotFound:
		return "asset_not_found"
	case MultiError:
		return "multi_error"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by the core. It carries a Kind so
// callers can branch with errors.Is/errors.As instead of string matching.
type Error struct {
	Kind    Kind
	Message string
	Errs    []error // populated only for Kind == MultiError
}

func (e *Error) Error() string {
	if e.Kind == MultiError {
		msgs := make([]string, 0, len(e.Errs))
		for _, sub := range e.Errs {
			msgs = append(msgs, sub.Error())
		}
		return fmt.Sprintf("multiple errors: %s", strings.Join(msgs, "; "))
	}
	return e.Message
}

// Is reports whether target is also a core *Error of the same Kind, so
// errors.Is(err, &coreerr.Error{Kind: coreerr.NotEnoughBalance}) matches any
// NotEnoughBalance error in err's chain. A bare Kind is not an error and
// cannot be passed to errors.Is; use KindOf for that.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// NewAccountNotFound builds an AccountNotFound error for the given id.
func NewAccountNotFound(accountID string) error {
	return &Error{Kind: AccountNotFound, Message: fmt.Sprintf("account not found: %s", accountID)}
}

// NewPositionNotFound builds a PositionNotFound error for the given id.
func NewPositionNotFound(positionID string) error {
	return &Error{Kind: PositionNotFound, Message: fmt.Sprintf("position not found: %s", positionID)}
}

// NewNotEnoughBalance builds a NotEnoughBalance error for the given account.
func NewNotEnoughBalance(accountID string, balance, delta float64) error {
	return &Error{
		Kind:    NotEnoughBalance,
		Message: fmt.Sprintf("account %s: balance %.4f + delta %.4f would go negative", accountID, balance, delta),
	}
}

// NewAssetNotFound builds an AssetNotFound error naming the missing pair and
// the entity that triggered the lookup.
func NewAssetNotFound(base, quote, context string) error {
	return &Error{
		Kind:    AssetNotFound,
		Message: fmt.Sprintf("asset not found for pair %s/%s (%s)", base, quote, context),
	}
}

// NewMultiError aggregates construction-time failures across many positions.
func NewMultiError(errs []error) error {
	return &Error{Kind: MultiError, Errs: errs}
}

// KindOf extracts the Kind of a core error, or ok=false if err is not one.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
