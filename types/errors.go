package types

// GatewayError is the error type returned across package boundaries.
// Callers branch on Code, never on Message.
type GatewayError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *GatewayError) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrConfigMissing        = "CONFIG_MISSING"
	ErrPriceUnavailable     = "PRICE_UNAVAILABLE"
	ErrChainDataUnavailable = "CHAIN_DATA_UNAVAILABLE"
	ErrOrderNotFound        = "ORDER_NOT_FOUND"
	ErrMissingIdentifier    = "MISSING_IDENTIFIER"
	ErrUnsupportedCurrency  = "UNSUPPORTED_CURRENCY"
	ErrTxRefConsumed        = "TX_REF_CONSUMED"
	ErrStoreFailure         = "STORE_FAILURE"
)

// NewGatewayError builds a GatewayError with the given code and message.
func NewGatewayError(code, message string) *GatewayError {
	return &GatewayError{Code: code, Message: message}
}

// ErrorCode extracts the gateway error code from err, or "" when err is
// not a GatewayError.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if ge, ok := err.(*GatewayError); ok {
		return ge.Code
	}
	return ""
}

// IsCode reports whether err is a GatewayError carrying the given code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
