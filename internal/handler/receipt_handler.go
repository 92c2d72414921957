package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/dafibh/fortuna/financing-backend/internal/middleware"
	"github.com/dafibh/fortuna/financing-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ReceiptHandler handles payment receipt images
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// ReceiptResponse carries short-lived URLs of the stored variants
type ReceiptResponse struct {
	ReceiptID    int32  `json:"receiptId"`
	PaymentID    int32  `json:"paymentId"`
	ThumbnailURL string `json:"thumbnailUrl"`
	DisplayURL   string `json:"displayUrl"`
	OriginalURL  string `json:"originalUrl"`
	ExpiresAt    string `json:"expiresAt"`
}

var receiptFileErrors = []error{
	service.ErrReceiptTooLarge,
	service.ErrReceiptInvalidFormat,
	service.ErrReceiptTooSmall,
	service.ErrReceiptInvalidImage,
}

// UploadReceipt handles POST /api/v1/financing-payments/:id/receipt
func (h *ReceiptHandler) UploadReceipt(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	paymentID, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid payment ID", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}
	if file.Size > service.MaxReceiptSize {
		return receiptFileError(c, service.ErrReceiptTooLarge)
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxReceiptSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	urls, err := h.receiptService.UploadReceipt(c.Request().Context(), workspaceID, paymentID, data, file.Filename)
	if err != nil {
		for _, target := range receiptFileErrors {
			if errors.Is(err, target) {
				return receiptFileError(c, target)
			}
		}
		return respondError(c, err, workspaceID, "upload receipt")
	}

	return c.JSON(http.StatusCreated, toReceiptResponse(urls))
}

// GetReceipt handles GET /api/v1/financing-payments/:id/receipt
func (h *ReceiptHandler) GetReceipt(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipts are unavailable (storage not configured)")
	}

	paymentID, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid payment ID", nil)
	}

	urls, err := h.receiptService.GetReceipt(c.Request().Context(), workspaceID, paymentID)
	if err != nil {
		return respondError(c, err, workspaceID, "get receipt")
	}
	return c.JSON(http.StatusOK, toReceiptResponse(urls))
}

func receiptFileError(c echo.Context, err error) error {
	return NewValidationError(c, "Validation failed", []ValidationError{
		{Field: "file", Message: sentence(err)},
	})
}

func toReceiptResponse(urls *service.ReceiptURLs) ReceiptResponse {
	return ReceiptResponse{
		ReceiptID:    urls.ReceiptID,
		PaymentID:    urls.PaymentID,
		ThumbnailURL: urls.ThumbnailURL,
		DisplayURL:   urls.DisplayURL,
		OriginalURL:  urls.OriginalURL,
		ExpiresAt:    formatTimestamp(urls.ExpiresAt),
	}
}
