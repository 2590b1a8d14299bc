package handler

import (
	"context"

	"github.com/disi/commandes/internal/application/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler handles account administration
type UserHandler struct {
	BaseHandler
	userService *identity.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *identity.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUserRequest lets an administrator create an account directly
type CreateUserRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=100"`
	Email          string `json:"email" binding:"required,email,max=150"`
	Password       string `json:"password" binding:"required,min=8,max=128"`
	Administration string `json:"administration" binding:"required,administration"`
	Phone          string `json:"phone" binding:"max=30"`
	IsAdmin        bool   `json:"is_admin"`
	Approved       bool   `json:"approved"`
}

// UpdateUserRequest changes the given fields only
type UpdateUserRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=2,max=100"`
	Email          *string `json:"email" binding:"omitempty,email,max=150"`
	Administration *string `json:"administration" binding:"omitempty,administration"`
	Phone          *string `json:"phone" binding:"omitempty,max=30"`
	Password       *string `json:"password" binding:"omitempty,min=8,max=128"`
}

// UserListQuery is the query string of GET /admin/users
type UserListQuery struct {
	Search         string `form:"search"`
	Approved       *bool  `form:"approved"`
	IsAdmin        *bool  `form:"is_admin"`
	Administration string `form:"administration"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string `form:"order_by"`
	OrderDir       string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// List returns accounts. GET /admin/users
func (h *UserHandler) List(c *gin.Context) {
	var q UserListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}

	users, total, err := h.userService.List(c.Request.Context(), identity.UserListFilter{
		Search:         q.Search,
		Approved:       q.Approved,
		IsAdmin:        q.IsAdmin,
		Administration: q.Administration,
		Page:           q.Page,
		PageSize:       q.PageSize,
		OrderBy:        q.OrderBy,
		OrderDir:       q.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, users, total, q.Page, q.PageSize)
}

// GetByID returns an account. GET /admin/users/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Create adds an account. POST /admin/users
func (h *UserHandler) Create(c *gin.Context) {
	actorID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), actorID, identity.CreateUserInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Administration: req.Administration,
		Phone:          req.Phone,
		IsAdmin:        req.IsAdmin,
		Approved:       req.Approved,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// Update edits an account. PUT /admin/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, identity.UpdateUserInput{
		Name:           req.Name,
		Email:          req.Email,
		Administration: req.Administration,
		Phone:          req.Phone,
		Password:       req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Delete removes an account without orders. DELETE /admin/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	actorID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), actorID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Approve lets the account order. POST /admin/users/:id/approve
func (h *UserHandler) Approve(c *gin.Context) {
	h.act(c, h.userService.Approve)
}

// RevokeApproval withdraws the right to order. POST /admin/users/:id/revoke-approval
func (h *UserHandler) RevokeApproval(c *gin.Context) {
	h.act(c, h.userService.RevokeApproval)
}

// GrantAdmin promotes the account. POST /admin/users/:id/grant-admin
func (h *UserHandler) GrantAdmin(c *gin.Context) {
	h.act(c, h.userService.GrantAdmin)
}

// RevokeAdmin demotes the account. POST /admin/users/:id/revoke-admin
func (h *UserHandler) RevokeAdmin(c *gin.Context) {
	h.act(c, h.userService.RevokeAdmin)
}

func (h *UserHandler) act(c *gin.Context, fn func(ctx context.Context, actorID, userID uuid.UUID) (*identity.UserInfo, error)) {
	actorID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	user, err := fn(c.Request.Context(), actorID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Administrations lists the distinct Administration/Direction labels in
// use. GET /admin/administrations
func (h *UserHandler) Administrations(c *gin.Context) {
	labels, err := h.userService.Administrations(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, labels)
}
