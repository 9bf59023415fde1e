package ledger

import (
	"fmt"
)

// Type is the canonical stored transaction type. An older schema
// generation stored the same pair lowercase ("payed", "pay_later");
// reads tolerate both, writes only ever produce the canonical set.
type Type string

const (
	TypePaid     Type = "PAYED"
	TypePayLater Type = "PAY_LATER"
)

// External API vocabulary for transaction types.
const (
	ExternalPaid    = "payed"
	ExternalPending = "pending"
)

// Payment methods accepted on ledger rows.
const (
	PaymentOnline = "online"
	PaymentCash   = "cash"
)

// ParseType translates the API vocabulary into the stored enum (write
// path). The legacy stored spellings are accepted too, so callers that
// round-trip a stored value back through the API keep working.
func ParseType(s string) (Type, error) {
	switch s {
	case ExternalPaid, string(TypePaid):
		return TypePaid, nil
	case ExternalPending, "pay_later", string(TypePayLater):
		return TypePayLater, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// ExternalLabel translates a stored type value into the API vocabulary
// (read path). Unrecognized values map to the paid label rather than
// failing.
func ExternalLabel(stored string) string {
	switch stored {
	case string(TypePayLater), "pay_later":
		return ExternalPending
	default:
		return ExternalPaid
	}
}

// ValidPaymentMethod reports whether m is one of the accepted payment
// method labels.
func ValidPaymentMethod(m string) bool {
	return m == PaymentOnline || m == PaymentCash
}
