package domain

import (
	"errors"
	"time"
)

var ErrReceiptNotFound = errors.New("payment receipt not found")

// PaymentReceipt references the stored image variants of a payment receipt.
// Paths are object keys, URLs are presigned on read.
type PaymentReceipt struct {
	ID            int32     `json:"id"`
	WorkspaceID   int32     `json:"workspaceId"`
	PaymentID     int32     `json:"paymentId"`
	ObjectID      string    `json:"objectId"`
	ThumbnailPath string    `json:"thumbnailPath"`
	DisplayPath   string    `json:"displayPath"`
	OriginalPath  string    `json:"originalPath"`
	CreatedAt     time.Time `json:"createdAt"`
}

type PaymentReceiptRepository interface {
	Create(receipt *PaymentReceipt) (*PaymentReceipt, error)
	GetLatestByPaymentID(workspaceID int32, paymentID int32) (*PaymentReceipt, error)
}
