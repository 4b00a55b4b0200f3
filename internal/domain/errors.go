package domain

import "errors"

var (
	ErrConfig               = errors.New("invalid configuration")
	ErrAddressInvalid       = errors.New("invalid address")
	ErrDenomRequired        = errors.New("denom is required")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnknownCorrelationID = errors.New("got a reply with unknown correlation id")
	ErrMismatchedRequest    = errors.New("answer does not match the stored request")
	ErrNumericParse         = errors.New("failed to parse Uint128")
	ErrArithmeticOverflow   = errors.New("arithmetic overflow")
	ErrDivision             = errors.New("division error")
	ErrNoRequestYet         = errors.New("no request has been issued yet")
	ErrRateNotAvailable     = errors.New("exchange rate not available")
	ErrPriceNotFound        = errors.New("price not found")
	ErrUnknownMessage       = errors.New("unknown message")
	ErrUnknownNode          = errors.New("unknown node")
)
