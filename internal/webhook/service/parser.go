package service

import (
	"bytes"
	"encoding/json"

	webhookdomain "github.com/TD-Producoes/revshare-sub001/internal/webhook/domain"
)

// eventDetails is the normalized projection every purchase-eligible event
// type is reduced to before business logic sees it.
type eventDetails struct {
	Amount   int64
	Currency string

	SessionID       string
	ChargeID        string
	InvoiceID       string
	PaymentIntentID string

	PromotionCodeID string

	ProjectIDMetadata        string
	CreatorPaymentIDMetadata string
}

// stripeID accepts both the compact form ("ch_123") and the expanded form
// ({"id": "ch_123", ...}) Stripe uses interchangeably for references.
type stripeID string

func (s *stripeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*s = stripeID(value)
		return nil
	}
	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	*s = stripeID(ref.ID)
	return nil
}

type sessionPayload struct {
	ID            string   `json:"id"`
	AmountTotal   int64    `json:"amount_total"`
	Currency      string   `json:"currency"`
	Invoice       stripeID `json:"invoice"`
	PaymentIntent stripeID `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
	Discounts     []struct {
		PromotionCode stripeID `json:"promotion_code"`
	} `json:"discounts"`
}

type invoicePayload struct {
	ID            string   `json:"id"`
	AmountPaid    int64    `json:"amount_paid"`
	Currency      string   `json:"currency"`
	Charge        stripeID `json:"charge"`
	PaymentIntent stripeID `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
	Discount      *struct {
		PromotionCode stripeID `json:"promotion_code"`
	} `json:"discount"`
	Discounts []struct {
		PromotionCode stripeID `json:"promotion_code"`
	} `json:"discounts"`
}

type chargePayload struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	Currency       string            `json:"currency"`
	Invoice        stripeID          `json:"invoice"`
	PaymentIntent  stripeID          `json:"payment_intent"`
	Metadata       map[string]string `json:"metadata"`
}

type paymentIntentPayload struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Invoice        stripeID          `json:"invoice"`
	LatestCharge   stripeID          `json:"latest_charge"`
	Metadata       map[string]string `json:"metadata"`
}

type refundPayload struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Amount        int64    `json:"amount"`
	Charge        stripeID `json:"charge"`
	PaymentIntent stripeID `json:"payment_intent"`
}

type disputePayload struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Amount        int64    `json:"amount"`
	Charge        stripeID `json:"charge"`
	PaymentIntent stripeID `json:"payment_intent"`
}

func parseSession(raw []byte) (eventDetails, error) {
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return eventDetails{}, webhookdomain.ErrInvalidPayload
	}
	details := eventDetails{
		Amount:          payload.AmountTotal,
		Currency:        payload.Currency,
		SessionID:       payload.ID,
		InvoiceID:       string(payload.Invoice),
		PaymentIntentID: string(payload.PaymentIntent),
	}
	for _, discount := range payload.Discounts {
		if discount.PromotionCode != "" {
			details.PromotionCodeID = string(discount.PromotionCode)
			break
		}
	}
	details.ProjectIDMetadata = payload.Metadata["projectId"]
	details.CreatorPaymentIDMetadata = payload.Metadata["creatorPaymentId"]
	return details, nil
}

func parseInvoice(raw []byte) (eventDetails, error) {
	var payload invoicePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return eventDetails{}, webhookdomain.ErrInvalidPayload
	}
	details := eventDetails{
		Amount:          payload.AmountPaid,
		Currency:        payload.Currency,
		ChargeID:        string(payload.Charge),
		InvoiceID:       payload.ID,
		PaymentIntentID: string(payload.PaymentIntent),
	}
	if payload.Discount != nil && payload.Discount.PromotionCode != "" {
		details.PromotionCodeID = string(payload.Discount.PromotionCode)
	}
	if details.PromotionCodeID == "" {
		for _, discount := range payload.Discounts {
			if discount.PromotionCode != "" {
				details.PromotionCodeID = string(discount.PromotionCode)
				break
			}
		}
	}
	details.ProjectIDMetadata = payload.Metadata["projectId"]
	return details, nil
}

func parseCharge(raw []byte) (eventDetails, error) {
	var payload chargePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return eventDetails{}, webhookdomain.ErrInvalidPayload
	}
	return eventDetails{
		Amount:            payload.Amount,
		Currency:          payload.Currency,
		ChargeID:          payload.ID,
		InvoiceID:         string(payload.Invoice),
		PaymentIntentID:   string(payload.PaymentIntent),
		ProjectIDMetadata: payload.Metadata["projectId"],
	}, nil
}

func parsePaymentIntent(raw []byte) (eventDetails, error) {
	var payload paymentIntentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return eventDetails{}, webhookdomain.ErrInvalidPayload
	}
	amount := payload.AmountReceived
	if amount == 0 {
		amount = payload.Amount
	}
	return eventDetails{
		Amount:            amount,
		Currency:          payload.Currency,
		ChargeID:          string(payload.LatestCharge),
		InvoiceID:         string(payload.Invoice),
		PaymentIntentID:   payload.ID,
		ProjectIDMetadata: payload.Metadata["projectId"],
	}, nil
}

func parseRefundedCharge(raw []byte) (chargePayload, error) {
	var payload chargePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return chargePayload{}, webhookdomain.ErrInvalidPayload
	}
	return payload, nil
}

func parseRefund(raw []byte) (refundPayload, error) {
	var payload refundPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return refundPayload{}, webhookdomain.ErrInvalidPayload
	}
	return payload, nil
}

func parseDispute(raw []byte) (disputePayload, error) {
	var payload disputePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return disputePayload{}, webhookdomain.ErrInvalidPayload
	}
	return payload, nil
}
