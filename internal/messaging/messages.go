package messaging

import (
	"encoding/json"
	"time"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
)

// Routing keys published on the financing exchange
const (
	RoutingPaymentRecorded  = "financing.payment.recorded"
	RoutingPaymentDeleted   = "financing.payment.deleted"
	RoutingFinancingSettled = "financing.settled"
)

// PaymentEventMessage is the notification emitted after a ledger mutation commits.
// Amounts are fixed-point strings so consumers never parse floats.
type PaymentEventMessage struct {
	WorkspaceID      int32     `json:"workspaceId"`
	FinancingID      int32     `json:"financingId"`
	PaymentID        int32     `json:"paymentId"`
	PaymentType      string    `json:"paymentType,omitempty"`
	PaymentAmount    string    `json:"paymentAmount,omitempty"`
	CurrentBalance   string    `json:"currentBalance"`
	PaidInstallments int32     `json:"paidInstallments"`
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewPaymentEventMessage builds a message from the committed payment and aggregate
func NewPaymentEventMessage(payment *domain.FinancingPayment, financing *domain.Financing) *PaymentEventMessage {
	return &PaymentEventMessage{
		WorkspaceID:      financing.WorkspaceID,
		FinancingID:      financing.ID,
		PaymentID:        payment.ID,
		PaymentType:      string(payment.PaymentType),
		PaymentAmount:    payment.PaymentAmount.StringFixed(2),
		CurrentBalance:   financing.CurrentBalance.StringFixed(2),
		PaidInstallments: financing.PaidInstallments,
		Status:           string(financing.Status),
		Timestamp:        time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PaymentEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentEventMessageFromJSON decodes a message
func PaymentEventMessageFromJSON(data []byte) (*PaymentEventMessage, error) {
	var msg PaymentEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
