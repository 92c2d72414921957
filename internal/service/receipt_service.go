package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"time"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/repository/storage"
	"github.com/dafibh/fortuna/financing-backend/internal/websocket"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	MaxReceiptSize      = 5 * 1024 * 1024 // 5MB
	MinReceiptDimension = 50
	ThumbnailWidth      = 200
	DisplayWidth        = 1200
	JPEGQuality         = 85
	ReceiptURLExpiry    = 15 * time.Minute
)

var (
	ErrReceiptTooLarge             = errors.New("file too large. Maximum size is 5MB")
	ErrReceiptInvalidFormat        = errors.New("invalid format. Supported: JPEG, PNG")
	ErrReceiptTooSmall             = errors.New("image too small. Minimum 50x50 pixels")
	ErrReceiptInvalidImage         = errors.New("invalid image data")
	ErrReceiptStorageNotConfigured = errors.New("receipt storage not configured")
)

var allowedReceiptExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ReceiptURLs are short-lived signed URLs of the stored variants
type ReceiptURLs struct {
	ReceiptID    int32     `json:"receiptId"`
	PaymentID    int32     `json:"paymentId"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	DisplayURL   string    `json:"displayUrl"`
	OriginalURL  string    `json:"originalUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// ReceiptService attaches receipt images to ledger rows. Receipts never affect balances.
type ReceiptService struct {
	store          storage.ReceiptStore
	receiptRepo    domain.PaymentReceiptRepository
	paymentRepo    domain.FinancingPaymentRepository
	eventPublisher websocket.EventPublisher
}

// NewReceiptService creates a new ReceiptService. store may be nil when object storage is not configured.
func NewReceiptService(store storage.ReceiptStore, receiptRepo domain.PaymentReceiptRepository, paymentRepo domain.FinancingPaymentRepository) *ReceiptService {
	return &ReceiptService{
		store:       store,
		receiptRepo: receiptRepo,
		paymentRepo: paymentRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ReceiptService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// IsEnabled indicates whether uploads are supported
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.store != nil
}

type receiptVariant struct {
	name     string
	maxWidth int
	path     string
	data     []byte
}

// UploadReceipt stores thumbnail, display and original JPEG variants of a receipt
// image and records their object paths against the payment
func (s *ReceiptService) UploadReceipt(ctx context.Context, workspaceID int32, paymentID int32, data []byte, filename string) (*ReceiptURLs, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}
	payment, err := s.paymentRepo.GetByID(workspaceID, paymentID)
	if err != nil {
		return nil, err
	}

	img, err := decodeReceipt(data, filename)
	if err != nil {
		return nil, err
	}

	objectID := uuid.New().String()
	variants := []*receiptVariant{
		{name: "thumb", maxWidth: ThumbnailWidth},
		{name: "display", maxWidth: DisplayWidth},
		{name: "original"},
	}
	for _, v := range variants {
		processed := img
		if v.maxWidth > 0 && img.Bounds().Dx() > v.maxWidth {
			processed = imaging.Resize(img, v.maxWidth, 0, imaging.Lanczos)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, processed, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, fmt.Errorf("encode %s variant: %w", v.name, err)
		}
		v.data = buf.Bytes()
		v.path = storage.ReceiptObjectPath(workspaceID, paymentID, objectID, v.name)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, v := range variants {
		v := v
		g.Go(func() error {
			if _, err := s.store.Upload(gctx, v.path, bytes.NewReader(v.data), "image/jpeg", int64(len(v.data))); err != nil {
				return fmt.Errorf("upload %s variant: %w", v.name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.cleanup(ctx, variants)
		return nil, err
	}

	receipt, err := s.receiptRepo.Create(&domain.PaymentReceipt{
		WorkspaceID:   workspaceID,
		PaymentID:     paymentID,
		ObjectID:      objectID,
		ThumbnailPath: variants[0].path,
		DisplayPath:   variants[1].path,
		OriginalPath:  variants[2].path,
	})
	if err != nil {
		s.cleanup(ctx, variants)
		return nil, err
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("payment_id", paymentID).
		Str("object_id", objectID).
		Msg("Payment receipt stored")

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(workspaceID, websocket.ReceiptCreated(receipt).ForFinancing(payment.FinancingID))
	}
	return s.sign(ctx, receipt)
}

// GetReceipt returns signed URLs of the latest receipt of a payment
func (s *ReceiptService) GetReceipt(ctx context.Context, workspaceID int32, paymentID int32) (*ReceiptURLs, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}
	receipt, err := s.receiptRepo.GetLatestByPaymentID(workspaceID, paymentID)
	if err != nil {
		return nil, err
	}
	return s.sign(ctx, receipt)
}

func (s *ReceiptService) sign(ctx context.Context, receipt *domain.PaymentReceipt) (*ReceiptURLs, error) {
	urls := &ReceiptURLs{
		ReceiptID: receipt.ID,
		PaymentID: receipt.PaymentID,
		ExpiresAt: time.Now().Add(ReceiptURLExpiry),
	}
	targets := []struct {
		path string
		dst  *string
	}{
		{receipt.ThumbnailPath, &urls.ThumbnailURL},
		{receipt.DisplayPath, &urls.DisplayURL},
		{receipt.OriginalPath, &urls.OriginalURL},
	}
	for _, t := range targets {
		url, err := s.store.GeneratePresignedURL(ctx, t.path, ReceiptURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("presign receipt: %w", err)
		}
		*t.dst = url
	}
	return urls, nil
}

// cleanup removes variants of a failed upload. Errors are logged only.
func (s *ReceiptService) cleanup(ctx context.Context, variants []*receiptVariant) {
	for _, v := range variants {
		if err := s.store.Delete(ctx, v.path); err != nil {
			log.Warn().Err(err).Str("path", v.path).Msg("Failed to clean up receipt variant")
		}
	}
}

func decodeReceipt(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}
	if !allowedReceiptExtensions[strings.ToLower(filepath.Ext(filename))] {
		return nil, ErrReceiptInvalidFormat
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrReceiptInvalidImage
	}
	bounds := img.Bounds()
	if bounds.Dx() < MinReceiptDimension || bounds.Dy() < MinReceiptDimension {
		return nil, ErrReceiptTooSmall
	}
	return img, nil
}
