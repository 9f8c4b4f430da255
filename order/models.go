// Package order defines the billing order value types that reconciliation
// operates on: the expected side, rebuilt deterministically from subscription
// state, and the actual side, ingested from the billing provider.
package order

import (
	"fmt"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/types"
)

// BillingReason explains why an order was (or should have been) generated.
type BillingReason string

const (
	ReasonSubscriptionCreate BillingReason = "subscription_create"
	ReasonSubscriptionCycle  BillingReason = "subscription_cycle"
	ReasonSubscriptionUpdate BillingReason = "subscription_update"
	ReasonManual             BillingReason = "manual"
)

// Status is the lifecycle state of an actual order.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusOpen          Status = "open"
	StatusPaid          Status = "paid"
	StatusVoid          Status = "void"
	StatusUncollectible Status = "uncollectible"
)

// EntryType classifies what a line item charges for.
type EntryType string

const (
	EntryCycle   EntryType = "cycle"   // Recurring base charge for the billing cycle
	EntryMetered EntryType = "metered" // Metered usage charge
	EntryCredit  EntryType = "credit"  // Negative adjustment (proration credit, refund)
)

// ExpectedOrder is what the billing provider should have produced for a
// subscription's billing period. It is computed, never stored as truth,
// and carries a deterministic StableID instead of a generated one.
type ExpectedOrder struct {
	StableID       string            `json:"stable_id"`
	SubscriptionID id.SubscriptionID `json:"subscription_id"`
	CustomerID     id.CustomerID     `json:"customer_id"`
	ProductID      id.ProductID      `json:"product_id,omitempty"`
	BillingReason  BillingReason     `json:"billing_reason"`
	Currency       string            `json:"currency"`
	Subtotal       types.Money       `json:"subtotal"`
	DiscountAmount types.Money       `json:"discount_amount"`
	TaxAmount      types.Money       `json:"tax_amount"`
	Total          types.Money       `json:"total"`
	AppliedBalance types.Money       `json:"applied_balance"`
	AmountDue      types.Money       `json:"amount_due"`
	Period         types.Period      `json:"period"`
	LineItems      []ExpectedLineItem `json:"line_items"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ExpectedLineItem is a single charge the provider should have billed.
type ExpectedLineItem struct {
	StableID  string       `json:"stable_id"`
	PriceID   id.PriceID   `json:"price_id"`
	Label     string       `json:"label"`
	EntryType EntryType    `json:"entry_type"`
	Quantity  int64        `json:"quantity"`
	Amount    types.Money  `json:"amount"`
	TaxAmount types.Money  `json:"tax_amount"`
	Proration bool         `json:"proration"`
	Period    types.Period `json:"period"`
}

// ActualOrder is an order as the billing provider actually produced it,
// ingested into the store for reconciliation.
type ActualOrder struct {
	types.Entity
	ID             id.OrderID        `json:"id"`
	SubscriptionID id.SubscriptionID `json:"subscription_id"`
	CustomerID     id.CustomerID     `json:"customer_id"`
	Status         Status            `json:"status"`
	BillingReason  BillingReason     `json:"billing_reason"`
	Currency       string            `json:"currency"`
	Subtotal       types.Money       `json:"subtotal"`
	DiscountAmount types.Money       `json:"discount_amount"`
	TaxAmount      types.Money       `json:"tax_amount"`
	Total          types.Money       `json:"total"`
	AppliedBalance types.Money       `json:"applied_balance"`
	Period         types.Period      `json:"period"`
	LineItems      []ActualLineItem  `json:"line_items"`
	ProviderRef    string            `json:"provider_ref,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ActualLineItem is a single charge the provider actually billed.
type ActualLineItem struct {
	ID        id.OrderItemID `json:"id"`
	OrderID   id.OrderID     `json:"order_id"`
	PriceID   id.PriceID     `json:"price_id"`
	Label     string         `json:"label"`
	Quantity  int64          `json:"quantity"`
	Amount    types.Money    `json:"amount"`
	TaxAmount types.Money    `json:"tax_amount"`
	Proration bool           `json:"proration"`
}

// NewExpectedOrder builds an expected order skeleton for a subscription
// period with zeroed totals in the given currency. Callers append line
// items and then call Finalize to compute totals.
func NewExpectedOrder(subID id.SubscriptionID, custID id.CustomerID, currency string, period types.Period) *ExpectedOrder {
	zero := types.Zero(currency)
	return &ExpectedOrder{
		StableID:       StableOrderID(subID, period),
		SubscriptionID: subID,
		CustomerID:     custID,
		BillingReason:  ReasonSubscriptionCycle,
		Currency:       zero.Currency,
		Subtotal:       zero,
		DiscountAmount: zero,
		TaxAmount:      zero,
		Total:          zero,
		AppliedBalance: zero,
		AmountDue:      zero,
		Period:         period,
	}
}

// AddLineItem appends a line item. The period defaults to the order's
// period before the stable ID is derived from it; an unset tax amount is
// normalized to the order currency so untaxed items stay arithmetic-safe.
func (o *ExpectedOrder) AddLineItem(item ExpectedLineItem) {
	if item.Period.IsZero() {
		item.Period = o.Period
	}
	if item.StableID == "" {
		item.StableID = StableItemID(item.PriceID, item.Period)
	}
	if item.TaxAmount.Currency == "" {
		item.TaxAmount = types.NewMoney(item.TaxAmount.Amount, o.Currency)
	}
	o.LineItems = append(o.LineItems, item)
}

// Finalize recomputes Subtotal, TaxAmount, Total, and AmountDue from the
// current line items, discount, and applied balance.
func (o *ExpectedOrder) Finalize() {
	subtotal := types.Zero(o.Currency)
	tax := types.Zero(o.Currency)
	for _, li := range o.LineItems {
		subtotal = subtotal.Add(li.Amount)
		t := li.TaxAmount
		if t.Currency == "" {
			t.Currency = o.Currency
		}
		tax = tax.Add(t)
	}
	o.Subtotal = subtotal
	o.TaxAmount = tax
	o.Total = subtotal.Subtract(o.DiscountAmount).Add(tax)
	o.AmountDue = o.Total.Subtract(o.AppliedBalance)
}

// NewActualOrder builds an actual order with a fresh ID and timestamps.
func NewActualOrder(subID id.SubscriptionID, custID id.CustomerID, currency string, period types.Period) *ActualOrder {
	zero := types.Zero(currency)
	return &ActualOrder{
		Entity:         types.NewEntity(),
		ID:             id.NewOrderID(),
		SubscriptionID: subID,
		CustomerID:     custID,
		Status:         StatusOpen,
		BillingReason:  ReasonSubscriptionCycle,
		Currency:       zero.Currency,
		Subtotal:       zero,
		DiscountAmount: zero,
		TaxAmount:      zero,
		Total:          zero,
		AppliedBalance: zero,
		Period:         period,
	}
}

// AddLineItem appends a line item, assigning an ID and the order's ID
// when unset. An unset tax amount is normalized to the order currency.
func (o *ActualOrder) AddLineItem(item ActualLineItem) {
	if item.ID.IsNil() {
		item.ID = id.NewOrderItemID()
	}
	if item.OrderID.IsNil() {
		item.OrderID = o.ID
	}
	if item.TaxAmount.Currency == "" {
		item.TaxAmount = types.NewMoney(item.TaxAmount.Amount, o.Currency)
	}
	o.LineItems = append(o.LineItems, item)
}

// AmountDue is what remains payable after the customer balance is applied.
func (o *ActualOrder) AmountDue() types.Money {
	return o.Total.Subtract(o.AppliedBalance)
}

// Validate checks structural invariants of an expected order.
func (o *ExpectedOrder) Validate() error {
	if o.StableID == "" {
		return &ValidationError{Field: "stable_id", Message: "must not be empty"}
	}
	if o.SubscriptionID.IsNil() {
		return &ValidationError{Field: "subscription_id", Message: "must not be nil"}
	}
	if o.Currency == "" {
		return &ValidationError{Field: "currency", Message: "must not be empty"}
	}
	if !o.Period.Valid() {
		return &ValidationError{Field: "period", Message: "start must precede end"}
	}
	if err := checkOrderCurrencies(o.Currency, []moneyField{
		{"subtotal", o.Subtotal},
		{"discount_amount", o.DiscountAmount},
		{"tax_amount", o.TaxAmount},
		{"total", o.Total},
		{"applied_balance", o.AppliedBalance},
		{"amount_due", o.AmountDue},
	}); err != nil {
		return err
	}
	if o.Total.Amount != o.Subtotal.Amount-o.DiscountAmount.Amount+o.TaxAmount.Amount {
		return &ValidationError{Field: "total", Message: "must equal subtotal - discount + tax"}
	}
	if o.AmountDue.Amount != o.Total.Amount-o.AppliedBalance.Amount {
		return &ValidationError{Field: "amount_due", Message: "must equal total - applied_balance"}
	}
	for i, li := range o.LineItems {
		if li.StableID == "" {
			return &ValidationError{Field: fmt.Sprintf("line_items[%d].stable_id", i), Message: "must not be empty"}
		}
		if li.Amount.Currency != o.Currency {
			return &ValidationError{Field: fmt.Sprintf("line_items[%d].amount", i), Message: "currency differs from order currency"}
		}
		if li.TaxAmount.Currency != o.Currency {
			return &ValidationError{Field: fmt.Sprintf("line_items[%d].tax_amount", i), Message: "currency differs from order currency"}
		}
	}
	return nil
}

// Validate checks structural invariants of an actual order.
func (o *ActualOrder) Validate() error {
	if o.ID.IsNil() {
		return &ValidationError{Field: "id", Message: "must not be nil"}
	}
	if o.SubscriptionID.IsNil() {
		return &ValidationError{Field: "subscription_id", Message: "must not be nil"}
	}
	if o.Currency == "" {
		return &ValidationError{Field: "currency", Message: "must not be empty"}
	}
	if !o.Period.Valid() {
		return &ValidationError{Field: "period", Message: "start must precede end"}
	}
	if err := checkOrderCurrencies(o.Currency, []moneyField{
		{"subtotal", o.Subtotal},
		{"discount_amount", o.DiscountAmount},
		{"tax_amount", o.TaxAmount},
		{"total", o.Total},
		{"applied_balance", o.AppliedBalance},
	}); err != nil {
		return err
	}
	for i, li := range o.LineItems {
		if li.Amount.Currency != o.Currency {
			return &ValidationError{Field: fmt.Sprintf("line_items[%d].amount", i), Message: "currency differs from order currency"}
		}
		if li.TaxAmount.Currency != o.Currency {
			return &ValidationError{Field: fmt.Sprintf("line_items[%d].tax_amount", i), Message: "currency differs from order currency"}
		}
	}
	return nil
}

type moneyField struct {
	name  string
	value types.Money
}

// checkOrderCurrencies ensures every order-level monetary field carries
// the order currency. A zero-value field with an empty currency fails
// here instead of panicking later inside Money arithmetic.
func checkOrderCurrencies(currency string, fields []moneyField) error {
	for _, f := range fields {
		if f.value.Currency != currency {
			return &ValidationError{Field: f.name, Message: "currency differs from order currency"}
		}
	}
	return nil
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("oracle: validation failed for %s: %s", e.Field, e.Message)
}
