// Package numbering generates the human-facing document numbers stamped on
// journal entries, invoices and payments.
package numbering

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefixes for the document families.
const (
	JournalPrefix = "JE"
	InvoicePrefix = "INV"
	PaymentPrefix = "PAY"
)

// Next builds a document number of the form PREFIX-YYYYMMDD-XXXXXXXX where
// the suffix is a random fragment. Uniqueness is still enforced by the
// database constraint; the date segment keeps numbers sortable for humans.
func Next(prefix string, date time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, date.Format("20060102"), suffix)
}
