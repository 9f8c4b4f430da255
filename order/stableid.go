package order

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/types"
)

// Stable IDs make expected orders deterministic: rebuilding the expected
// side for the same subscription and period always yields the same IDs,
// so repeated reconciliation runs produce identical findings.

// StableOrderID derives the deterministic identifier for the expected
// order covering a subscription's billing period.
func StableOrderID(subID id.SubscriptionID, period types.Period) string {
	return "exp_" + digest(subID.String(), period)
}

// StableItemID derives the deterministic identifier for the expected
// line item charging a price over a period.
func StableItemID(priceID id.PriceID, period types.Period) string {
	return "expi_" + digest(priceID.String(), period)
}

func digest(key string, period types.Period) string {
	h := sha256.New()
	h.Write([]byte(key))
	h.Write([]byte{'|'})
	h.Write([]byte(period.Start.UTC().Format(time.RFC3339)))
	h.Write([]byte{'|'})
	h.Write([]byte(period.End.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
