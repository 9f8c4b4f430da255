package mongo

import (
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

	ID                  string            `grove:"id,pk"                 bson:"_id"`
	SubscriptionID      string            `grove:"subscription_id"       bson:"subscription_id"`
	CustomerID          string            `grove:"customer_id"           bson:"customer_id"`
	Status              string            `grove:"status"                bson:"status"`
	BillingReason       string            `grove:"billing_reason"        bson:"billing_reason"`
	Currency            string            `grove:"currency"              bson:"currency"`
	SubtotalCents       int64             `grove:"subtotal_cents"        bson:"subtotal_cents"`
	DiscountCents       int64             `grove:"discount_cents"        bson:"discount_cents"`
	TaxCents            int64             `grove:"tax_cents"             bson:"tax_cents"`
	TotalCents          int64             `grove:"total_cents"           bson:"total_cents"`
	AppliedBalanceCents int64             `grove:"applied_balance_cents" bson:"applied_balance_cents"`
	PeriodStart         time.Time         `grove:"period_start"          bson:"period_start"`
	PeriodEnd           time.Time         `grove:"period_end"            bson:"period_end"`
	LineItems           []lineItemModel   `grove:"line_items"            bson:"line_items"`
	ProviderRef         string            `grove:"provider_ref"          bson:"provider_ref"`
	ReconciledAt        *time.Time        `grove:"reconciled_at"         bson:"reconciled_at,omitempty"`
	LastRunID           string            `grove:"last_run_id"           bson:"last_run_id"`
	Metadata            map[string]string `grove:"metadata"              bson:"metadata,omitempty"`
	CreatedAt           time.Time         `grove:"created_at"            bson:"created_at"`
	UpdatedAt           time.Time         `grove:"updated_at"            bson:"updated_at"`
}

type lineItemModel struct {
	ID             string `bson:"id"`
	OrderID        string `bson:"order_id"`
	PriceID        string `bson:"price_id"`
	Label          string `bson:"label"`
	Quantity       int64  `bson:"quantity"`
	AmountCents    int64  `bson:"amount_cents"`
	AmountCurrency string `bson:"amount_currency"`
	TaxCents       int64  `bson:"tax_cents"`
	TaxCurrency    string `bson:"tax_currency"`
	Proration      bool   `bson:"proration"`
}

func toActualOrderModel(o *order.ActualOrder) *actualOrderModel {
	lineItems := make([]lineItemModel, len(o.LineItems))
	for i, li := range o.LineItems {
		lineItems[i] = lineItemModel{
			ID:             li.ID.String(),
			OrderID:        li.OrderID.String(),
			PriceID:        li.PriceID.String(),
			Label:          li.Label,
			Quantity:       li.Quantity,
			AmountCents:    li.Amount.Amount,
			AmountCurrency: li.Amount.Currency,
			TaxCents:       li.TaxAmount.Amount,
			TaxCurrency:    li.TaxAmount.Currency,
			Proration:      li.Proration,
		}
	}

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

	lineItems := make([]order.ActualLineItem, len(m.LineItems))
	for i, li := range m.LineItems {
		liID, liErr := id.ParseOrderItemID(li.ID)
		if liErr != nil {
			return nil, liErr
		}
		oID, oErr := id.ParseOrderID(li.OrderID)
		if oErr != nil {
			return nil, oErr
		}
		priceID, pErr := id.ParsePriceID(li.PriceID)
		if pErr != nil {
			return nil, pErr
		}
		lineItems[i] = order.ActualLineItem{
			ID:        liID,
			OrderID:   oID,
			PriceID:   priceID,
			Label:     li.Label,
			Quantity:  li.Quantity,
			Amount:    types.Money{Amount: li.AmountCents, Currency: li.AmountCurrency},
			TaxAmount: types.Money{Amount: li.TaxCents, Currency: li.TaxCurrency},
			Proration: li.Proration,
		}
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

	ID            string          `grove:"id,pk"          bson:"_id"`
	StartedAt     time.Time       `grove:"started_at"     bson:"started_at"`
	CompletedAt   *time.Time      `grove:"completed_at"   bson:"completed_at,omitempty"`
	OrdersChecked int             `grove:"orders_checked" bson:"orders_checked"`
	Mismatches    []mismatchModel `grove:"mismatches"     bson:"mismatches"`
	Skips         []skipModel     `grove:"skips"          bson:"skips"`
	CreatedAt     time.Time       `grove:"created_at"     bson:"created_at"`
}

type mismatchModel struct {
	Severity         string `bson:"severity"`
	Classification   string `bson:"classification"`
	Message          string `bson:"message"`
	ExpectedCents    *int64 `bson:"expected_cents,omitempty"`
	ExpectedCurrency string `bson:"expected_currency,omitempty"`
	ActualCents      *int64 `bson:"actual_cents,omitempty"`
	ActualCurrency   string `bson:"actual_currency,omitempty"`
	Difference       int64  `bson:"difference"`
}

type skipModel struct {
	SubscriptionID string `bson:"subscription_id"`
	Reason         string `bson:"reason"`
}

func toRunModel(r *reconcile.Result) *runModel {
	mismatches := make([]mismatchModel, len(r.Mismatches))
	for i, mm := range r.Mismatches {
		m := mismatchModel{
			Severity:       string(mm.Severity),
			Classification: string(mm.Classification),
			Message:        mm.Message,
			Difference:     mm.Difference,
		}
		if mm.Expected != nil {
			cents := mm.Expected.Amount
			m.ExpectedCents = &cents
			m.ExpectedCurrency = mm.Expected.Currency
		}
		if mm.Actual != nil {
			cents := mm.Actual.Amount
			m.ActualCents = &cents
			m.ActualCurrency = mm.Actual.Currency
		}
		mismatches[i] = m
	}

	skips := make([]skipModel, len(r.Skips))
	for i, sk := range r.Skips {
		skips[i] = skipModel{
			SubscriptionID: sk.SubscriptionID.String(),
			Reason:         sk.Reason,
		}
	}

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

	mismatches := make([]reconcile.Mismatch, len(m.Mismatches))
	for i, mm := range m.Mismatches {
		r := reconcile.Mismatch{
			Severity:       reconcile.Severity(mm.Severity),
			Classification: reconcile.Classification(mm.Classification),
			Message:        mm.Message,
			Difference:     mm.Difference,
		}
		if mm.ExpectedCents != nil {
			r.Expected = &types.Money{Amount: *mm.ExpectedCents, Currency: mm.ExpectedCurrency}
		}
		if mm.ActualCents != nil {
			r.Actual = &types.Money{Amount: *mm.ActualCents, Currency: mm.ActualCurrency}
		}
		mismatches[i] = r
	}

	skips := make([]reconcile.Skip, len(m.Skips))
	for i, sk := range m.Skips {
		subID, skErr := id.ParseSubscriptionID(sk.SubscriptionID)
		if skErr != nil {
			return nil, skErr
		}
		skips[i] = reconcile.Skip{SubscriptionID: subID, Reason: sk.Reason}
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
