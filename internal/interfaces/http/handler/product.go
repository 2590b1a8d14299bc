package handler

import (
	"context"
	"io"
	"net/http"

	catalogapp "github.com/disi/commandes/internal/application/catalog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProductHandler serves the catalog to users and its management to
// administrators
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// AdjustStockRequest adds or removes units
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// List returns active products. GET /products
func (h *ProductHandler) List(c *gin.Context) {
	h.list(c, false)
}

// AdminList returns products including inactive ones. GET /admin/products
func (h *ProductHandler) AdminList(c *gin.Context) {
	h.list(c, true)
}

func (h *ProductHandler) list(c *gin.Context, includeInactive bool) {
	var filter catalogapp.ProductListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	products, total, err := h.productService.List(c.Request.Context(), filter, includeInactive)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, products, total, filter.Page, filter.PageSize)
}

// Get returns an active product. GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	h.get(c, false)
}

// AdminGet returns any product. GET /admin/products/:id
func (h *ProductHandler) AdminGet(c *gin.Context) {
	h.get(c, true)
}

func (h *ProductHandler) get(c *gin.Context, includeInactive bool) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.GetByID(c.Request.Context(), id, includeInactive)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Create adds a product. POST /admin/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Update changes a product. PUT /admin/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.productService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Delete removes a product that was never ordered. DELETE /admin/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Activate makes a product orderable. POST /admin/products/:id/activate
func (h *ProductHandler) Activate(c *gin.Context) {
	h.mutate(c, h.productService.Activate)
}

// Deactivate hides a product. POST /admin/products/:id/deactivate
func (h *ProductHandler) Deactivate(c *gin.Context) {
	h.mutate(c, h.productService.Deactivate)
}

func (h *ProductHandler) mutate(c *gin.Context, fn func(context.Context, uuid.UUID) (*catalogapp.ProductResponse, error)) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	product, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// AdjustStock adds delta units. POST /admin/products/:id/stock
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.productService.AdjustStock(c.Request.Context(), id, req.Delta)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// UploadImage stores the "image" multipart file. POST /admin/products/:id/image
func (h *ProductHandler) UploadImage(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_IMAGE", "An image file is required in the \"image\" field")
		return
	}
	if header.Size > catalogapp.MaxImageSize {
		h.Error(c, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "Image exceeds 5 MB")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, catalogapp.MaxImageSize+1))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	product, err := h.productService.UploadImage(c.Request.Context(), id, header.Filename, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}
