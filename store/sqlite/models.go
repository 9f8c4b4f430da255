package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/reconcile"
	"github.com/xraph/oracle/types"
)

// ==================== Actual order models ====================

type actualOrderModel struct {
	grove.BaseModel `grove:"table:oracle_actual_orders"`

	ID                  string            `grove:"id,pk"`
	SubscriptionID      string            `grove:"subscription_id"`
	CustomerID          string            `grove:"customer_id"`
	Status              string            `grove:"status"`
	BillingReason       string            `grove:"billing_reason"`
	Currency            string            `grove:"currency"`
	SubtotalCents       int64             `grove:"subtotal_cents"`
	DiscountCents       int64             `grove:"discount_cents"`
	TaxCents            int64             `grove:"tax_cents"`
	TotalCents          int64             `grove:"total_cents"`
	AppliedBalanceCents int64             `grove:"applied_balance_cents"`
	PeriodStart         time.Time         `grove:"period_start"`
	PeriodEnd           time.Time         `grove:"period_end"`
	LineItems           json.RawMessage   `grove:"line_items"`
	ProviderRef         string            `grove:"provider_ref"`
	ReconciledAt        *time.Time        `grove:"reconciled_at"`
	LastRunID           string            `grove:"last_run_id"`
	Metadata            map[string]string `grove:"metadata"`
	CreatedAt           time.Time         `grove:"created_at"`
	UpdatedAt           time.Time         `grove:"updated_at"`
}

func toActualOrderModel(o *order.ActualOrder) *actualOrderModel {
	lineItems, _ := json.Marshal(o.LineItems) //nolint:errcheck // best-effort

	return &actualOrderModel{
		ID:                  o.ID.String(),
		SubscriptionID:      o.SubscriptionID.String(),
		CustomerID:          o.CustomerID.String(),
		Status:              string(o.Status),
		BillingReason:       string(o.BillingReason),
		Currency:            o.Currency,
		SubtotalCents:       o.Subtotal.Amount,
		DiscountCents:       o.DiscountAmount.Amount,
		TaxCents:            o.TaxAmount.Amount,
		TotalCents:          o.Total.Amount,
		AppliedBalanceCents: o.AppliedBalance.Amount,
		PeriodStart:         o.Period.Start,
		PeriodEnd:           o.Period.End,
		LineItems:           lineItems,
		ProviderRef:         o.ProviderRef,
		Metadata:            o.Metadata,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func fromActualOrderModel(m *actualOrderModel) (*order.ActualOrder, error) {
	orderID, err := id.ParseOrderID(m.ID)
	if err != nil {
		return nil, err
	}
	subID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, err
	}

	var custID id.CustomerID
	if m.CustomerID != "" {
		custID, err = id.ParseCustomerID(m.CustomerID)
		if err != nil {
			return nil, err
		}
	}

	var lineItems []order.ActualLineItem
	if len(m.LineItems) > 0 {
		_ = json.Unmarshal(m.LineItems, &lineItems) //nolint:errcheck // best-effort
	}

	return &order.ActualOrder{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             orderID,
		SubscriptionID: subID,
		CustomerID:     custID,
		Status:         order.Status(m.Status),
		BillingReason:  order.BillingReason(m.BillingReason),
		Currency:       m.Currency,
		Subtotal:       types.Money{Amount: m.SubtotalCents, Currency: m.Currency},
		DiscountAmount: types.Money{Amount: m.DiscountCents, Currency: m.Currency},
		TaxAmount:      types.Money{Amount: m.TaxCents, Currency: m.Currency},
		Total:          types.Money{Amount: m.TotalCents, Currency: m.Currency},
		AppliedBalance: types.Money{Amount: m.AppliedBalanceCents, Currency: m.Currency},
		Period:         types.Period{Start: m.PeriodStart, End: m.PeriodEnd},
		LineItems:      lineItems,
		ProviderRef:    m.ProviderRef,
		Metadata:       m.Metadata,
	}, nil
}

// ==================== Run result models ====================

type runModel struct {
	grove.BaseModel `grove:"table:oracle_runs"`

	ID            string          `grove:"id,pk"`
	StartedAt     time.Time       `grove:"started_at"`
	CompletedAt   *time.Time      `grove:"completed_at"`
	OrdersChecked int             `grove:"orders_checked"`
	Mismatches    json.RawMessage `grove:"mismatches"`
	Skips         json.RawMessage `grove:"skips"`
	CreatedAt     time.Time       `grove:"created_at"`
}

func toRunModel(r *reconcile.Result) *runModel {
	mismatches, _ := json.Marshal(r.Mismatches) //nolint:errcheck // best-effort
	skips, _ := json.Marshal(r.Skips)           //nolint:errcheck // best-effort

	m := &runModel{
		ID:            r.RunID.String(),
		StartedAt:     r.StartedAt,
		OrdersChecked: r.OrdersChecked,
		Mismatches:    mismatches,
		Skips:         skips,
		CreatedAt:     time.Now().UTC(),
	}
	if !r.CompletedAt.IsZero() {
		completed := r.CompletedAt
		m.CompletedAt = &completed
	}
	return m
}

func fromRunModel(m *runModel) (*reconcile.Result, error) {
	runID, err := id.ParseRunID(m.ID)
	if err != nil {
		return nil, err
	}

	var mismatches []reconcile.Mismatch
	if len(m.Mismatches) > 0 {
		_ = json.Unmarshal(m.Mismatches, &mismatches) //nolint:errcheck // best-effort
	}
	var skips []reconcile.Skip
	if len(m.Skips) > 0 {
		_ = json.Unmarshal(m.Skips, &skips) //nolint:errcheck // best-effort
	}

	r := &reconcile.Result{
		RunID:         runID,
		StartedAt:     m.StartedAt,
		OrdersChecked: m.OrdersChecked,
		Mismatches:    mismatches,
		Skips:         skips,
	}
	if m.CompletedAt != nil {
		r.CompletedAt = *m.CompletedAt
	}
	return r, nil
}
