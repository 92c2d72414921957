package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"
)

// ReceiptStore stores payment receipt image variants as private objects
type ReceiptStore interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}

// ReceiptObjectPath builds the object key of one receipt variant:
// {workspace}/financing-payments/{payment}/{objectID}_{variant}.jpg
func ReceiptObjectPath(workspaceID int32, paymentID int32, objectID string, variant string) string {
	filename := fmt.Sprintf("%s_%s.jpg", objectID, variant)
	return path.Join(fmt.Sprintf("%d", workspaceID), "financing-payments", fmt.Sprintf("%d", paymentID), filename)
}
