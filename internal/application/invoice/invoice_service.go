package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/ordering"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/printing"
	"github.com/disi/commandes/internal/infrastructure/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContentType of rendered invoices
const ContentType = "application/pdf"

// RenderRecorder observes invoice rendering
type RenderRecorder interface {
	RecordInvoiceRender(ctx context.Context, d time.Duration, err error)
}

// Options configures the invoice header and rendering
type Options struct {
	CompanyName    string
	CompanyAddress string
	RenderTimeout  time.Duration
	// Archive uploads every rendered PDF to object storage
	Archive bool
}

// Requester identifies who asks for an invoice
type Requester struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Document is a rendered invoice
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
	PageCount   int
}

// Service renders delivery invoices of approved orders
type Service struct {
	orderRepo ordering.OrderRepository
	userRepo  identity.UserRepository
	templates *printing.TemplateEngine
	renderer  printing.PDFRenderer
	objects   storage.ObjectStorage
	metrics   RenderRecorder
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new invoice Service. objects and metrics may be nil.
func NewService(
	orderRepo ordering.OrderRepository,
	userRepo identity.UserRepository,
	templates *printing.TemplateEngine,
	renderer printing.PDFRenderer,
	objects storage.ObjectStorage,
	metrics RenderRecorder,
	opts Options,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		templates: templates,
		renderer:  renderer,
		objects:   objects,
		metrics:   metrics,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate renders the invoice of an order as an A4 PDF. Only the owner or
// an administrator may ask for it, and only once the order is approved.
func (s *Service) Generate(ctx context.Context, requester Requester, orderID uuid.UUID) (*Document, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !requester.IsAdmin && !order.IsOwnedBy(requester.UserID) {
		return nil, shared.NewDomainError("FORBIDDEN", "This order belongs to another user")
	}
	if !order.HasInvoice() {
		return nil, shared.NewDomainError("INVALID_STATE", "An invoice is only available for approved or delivered orders")
	}

	inv := s.buildInvoice(ctx, order)
	html, err := s.templates.RenderInvoice(ctx, inv)
	if err != nil {
		return nil, shared.NewDomainError(printing.ErrCodeTemplateFailed, "Failed to prepare the invoice")
	}

	start := time.Now()
	result, err := s.renderer.Render(ctx, &printing.RenderRequest{
		HTML:      html,
		Title:     "Facture " + order.Number,
		PaperSize: printing.PaperSizeA4,
		Margins:   printing.DefaultMargins(),
		Timeout:   s.opts.RenderTimeout,
	})
	if s.metrics != nil {
		s.metrics.RecordInvoiceRender(ctx, time.Since(start), err)
	}
	if err != nil {
		return nil, renderError(err)
	}

	doc := &Document{
		Filename:    inv.Filename(),
		ContentType: ContentType,
		Data:        result.PDFData,
		PageCount:   result.PageCount,
	}
	s.archive(ctx, order, doc)

	s.logger.Info("Invoice generated",
		zap.String("order_id", order.ID.String()),
		zap.String("number", order.Number),
		zap.Int("bytes", len(doc.Data)),
		zap.Duration("duration", result.RenderDuration))
	return doc, nil
}

func (s *Service) buildInvoice(ctx context.Context, order *ordering.Order) *printing.Invoice {
	inv := &printing.Invoice{
		CompanyName:    s.opts.CompanyName,
		CompanyAddress: s.opts.CompanyAddress,
		Number:         order.Number,
		Status:         string(order.Status),
		CreatedAt:      order.CreatedAt,
		ApprovedAt:     order.ApprovedAt,
		DeliveredAt:    order.DeliveredAt,
		Notes:          order.Notes,
		Total:          order.TotalAmount,
		Lines:          make([]printing.InvoiceLine, len(order.Items)),
		GeneratedAt:    s.now(),
	}
	for i, it := range order.Items {
		inv.Lines[i] = printing.InvoiceLine{
			Reference: it.Reference,
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		}
	}

	user, err := s.userRepo.FindByID(ctx, order.UserID)
	if err != nil {
		s.logger.Warn("Invoice requester not found",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		return inv
	}
	inv.RequesterName = user.Name
	inv.RequesterEmail = user.Email
	inv.Administration = user.AdministrationLabel()
	return inv
}

func (s *Service) archive(ctx context.Context, order *ordering.Order, doc *Document) {
	if !s.opts.Archive || s.objects == nil {
		return
	}
	key := storage.InvoiceKey(order.Number)
	if err := s.objects.Upload(ctx, key, doc.Data, doc.ContentType); err != nil {
		s.logger.Warn("Failed to archive invoice",
			zap.String("number", order.Number),
			zap.String("key", key),
			zap.Error(err))
	}
}

func renderError(err error) error {
	var re *printing.RenderError
	if errors.As(err, &re) {
		if re.Code == printing.ErrCodeRenderTimeout {
			return shared.NewDomainError(re.Code, "Invoice rendering took too long, please retry")
		}
		return shared.NewDomainError(re.Code, "Failed to render the invoice")
	}
	return err
}
