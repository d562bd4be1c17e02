package ledger

import "errors"

// Error is a caller-visible failure with a stable identifier.
type Error struct {
	Code    string
	Message string
	parent  *Error
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e.parent == nil {
		return nil
	}

	return e.parent
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// authorization
var (
	ErrNotOwner = newError("NotOwner", "caller is not the owner")
)

// whitelist
var (
	ErrNotWhitelisted     = newError("NotWhitelisted", "address is not whitelisted")
	ErrAlreadyWhitelisted = newError("AlreadyWhitelisted", "address is already whitelisted")
	// ErrNotCurrentlyWhitelisted matches ErrNotWhitelisted under errors.Is.
	ErrNotCurrentlyWhitelisted = &Error{
		Code:    "NotCurrentlyWhitelisted",
		Message: "address is not currently whitelisted",
		parent:  ErrNotWhitelisted,
	}
)

// phase
var (
	ErrInvalidTransition      = newError("InvalidTransition", "phase transition is not allowed from the current phase")
	ErrCampaignNotFinished    = newError("CampaignNotFinished", "not all tickets have been sold")
	ErrFundraisingNotComplete = newError("FundraisingNotComplete", "fundraising is not complete")
	ErrFundraisingNotLive     = newError("FundraisingNotLive", "fundraising has not started")
	ErrFundraisingEnded       = newError("FundraisingEnded", "fundraising has ended")
	ErrMintingNotLive         = newError("MintingNotLive", "minting has not started")
)

// quantity
var (
	ErrInvalidAmount             = newError("InvalidAmount", "invalid amount")
	ErrNotEnoughTicketsAvailable = newError("NotEnoughTicketsAvailable", "not enough tickets available")
	ErrInsufficientStaked        = newError("InsufficientStaked", "insufficient staked amount")
	ErrNoTokenStaked             = newError("NoTokenStaked", "no token staked")
	ErrNoTickets                 = newError("NoTickets", "no tickets owned")
)

// registry
var (
	ErrAlreadyAuthorized = newError("AlreadyAuthorized", "address is already authorized")
	ErrNotAuthorized     = newError("NotAuthorized", "address is not authorized")
)

// payment and asset bookkeeping
var (
	ErrPaymentRejected       = newError("PaymentRejected", "contract does not accept direct payments")
	ErrInsufficientBalance   = newError("InsufficientBalance", "insufficient balance")
	ErrInsufficientAllowance = newError("InsufficientAllowance", "insufficient allowance")
	ErrNotApproved           = newError("NotApproved", "operator is not approved")
	ErrOverflow              = newError("Overflow", "arithmetic overflow")
	ErrUnitNotFound          = newError("UnitNotFound", "unit does not exist")
	ErrUnitAlreadyRegistered = newError("UnitAlreadyRegistered", "unit is already registered")
	ErrAlreadyInitialized    = newError("AlreadyInitialized", "init has already been called")
)

// host
var (
	ErrClockRegression = newError("ClockRegression", "transaction time is before the ledger time")
	ErrUnknownMethod   = newError("UnknownMethod", "unknown contract method")
	ErrInvalidArgument = newError("InvalidArgument", "invalid argument")
)

// Code returns the stable identifier carried by err, or "Internal" for
// failures that are not part of the catalogue.
func Code(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return "Internal"
}
