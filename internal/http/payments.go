package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"PhoneStore/internal/models"
	"PhoneStore/internal/payments"
	"PhoneStore/internal/processor"
	"PhoneStore/internal/reconcile"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v76"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

const maxPayloadBytes = 1 << 20

const paymentChangeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["after"],
  "properties": {
    "before": { "type": ["object", "null"] },
    "after": {
      "type": "object",
      "required": ["status"],
      "properties": {
        "id": { "type": "string" },
        "status": { "type": "string", "minLength": 1 }
      }
    }
  }
}`

var paymentChangeLoader = gojsonschema.NewStringLoader(paymentChangeSchema)

type paymentChangeRequest struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
}

type reconcileResponse struct {
	Received bool              `json:"received"`
	Outcome  reconcile.Outcome `json:"outcome,omitempty"`
	OrderID  string            `json:"orderId,omitempty"`
}

func validatePaymentChange(body []byte) error {
	result, err := gojsonschema.Validate(paymentChangeLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

// PaymentChanged receives the before/after snapshots of a payment document
// from the store's trigger. A 5xx response asks the trigger to redeliver.
func (h *Handler) PaymentChanged(w http.ResponseWriter, r *http.Request) {
	if !h.authorizedInternal(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	paymentID := chi.URLParam(r, "paymentId")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	if err := validatePaymentChange(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req paymentChangeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	after, err := payments.DecodeRecord(req.After)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid after snapshot")
		return
	}
	if after.ID == "" {
		after.ID = paymentID
	}
	if after.ID != paymentID {
		writeError(w, http.StatusBadRequest, "payment id mismatch")
		return
	}

	change := models.PaymentChange{PaymentID: paymentID, After: after}
	if len(req.Before) > 0 && string(req.Before) != "null" {
		before, err := payments.DecodeRecord(req.Before)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid before snapshot")
			return
		}
		change.Before = &before
	}

	transition := reconcile.IsSuccessTransition(change.Before, after)
	if _, err := h.Payments.SyncPayment(r.Context(), after, transition); err != nil {
		h.Log.Error("mirror payment failed", zap.String("payment_id", paymentID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "mirror payment failed")
		return
	}
	h.reconcile(w, r, change)
}

// StripeWebhook handles processor events. The event itself marks the
// transition, so every delivery is reconciled and deduplicated by the order
// writer.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		writeError(w, http.StatusBadRequest, "no stripe signature found")
		return
	}

	event, err := h.Webhook.Verify(payload, signature)
	if err != nil {
		h.Log.Warn("webhook signature verification failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "signature verification failed")
		return
	}
	if !processor.HandlesEvent(string(event.Type)) {
		writeJSON(w, http.StatusOK, reconcileResponse{Received: true})
		return
	}

	session, err := processor.DecodeSession(event)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.Sessions != nil {
		full, err := h.Sessions.FetchSession(r.Context(), session.ID)
		if err != nil {
			h.Log.Error("fetch checkout session failed", zap.String("session_id", session.ID), zap.Error(err))
			writeError(w, http.StatusBadGateway, "fetch checkout session failed")
			return
		}
		session = full
	}

	rec := processor.SessionRecord(session)
	if err := h.linkCustomer(r, session, rec); err != nil {
		h.Log.Error("link customer failed", zap.String("payment_id", rec.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "link customer failed")
		return
	}

	prev, err := h.Payments.SyncPayment(r.Context(), rec, reconcile.IsSuccessTransition(nil, rec))
	if err != nil {
		h.Log.Error("mirror payment failed", zap.String("payment_id", rec.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "mirror payment failed")
		return
	}
	h.Log.Debug("payment mirrored",
		zap.String("payment_id", rec.ID),
		zap.String("event", string(event.Type)),
		zap.String("previous_status", prev),
		zap.String("status", rec.Status))

	h.reconcile(w, r, models.PaymentChange{PaymentID: rec.ID, After: rec})
}

// linkCustomer remembers which processor customer paid for a user so the
// billing portal can reuse it. Guest sessions and unattributable payments are
// skipped.
func (h *Handler) linkCustomer(r *http.Request, session *stripe.CheckoutSession, rec models.PaymentRecord) error {
	customerID := processor.CustomerID(session)
	if h.Customers == nil || customerID == "" {
		return nil
	}
	uid, err := payments.ResolveUserID(rec.Metadata)
	if err != nil {
		return nil
	}
	email := ""
	if rec.Customer != nil {
		email = rec.Customer.Email
	}
	return h.Customers.LinkCustomer(r.Context(), uid, customerID, email)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request, change models.PaymentChange) {
	res, err := h.Reconciler.HandleChange(r.Context(), change)
	if err != nil {
		if errors.Is(err, reconcile.ErrMissingPaymentID) {
			writeError(w, http.StatusBadRequest, "missing payment id")
			return
		}
		h.Log.Error("reconciliation failed", zap.String("payment_id", change.PaymentID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}

	status := http.StatusOK
	if res.Outcome == reconcile.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, reconcileResponse{Received: true, Outcome: res.Outcome, OrderID: res.OrderID})
}
