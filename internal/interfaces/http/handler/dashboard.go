package handler

import (
	"net/http"
	"strconv"
	"strings"

	dashboardapp "github.com/disi/commandes/internal/application/dashboard"
	"github.com/gin-gonic/gin"
)

// DashboardPath is where clearing the cache sends the browser back to
const DashboardPath = "/admin/dashboard"

// DashboardHandler serves the administration dashboard data
type DashboardHandler struct {
	BaseHandler
	dashboardService *dashboardapp.Service
	redirectTo       string
}

// NewDashboardHandler creates a new DashboardHandler. redirectTo defaults
// to DashboardPath.
func NewDashboardHandler(dashboardService *dashboardapp.Service, redirectTo string) *DashboardHandler {
	if redirectTo == "" {
		redirectTo = DashboardPath
	}
	return &DashboardHandler{
		dashboardService: dashboardService,
		redirectTo:       redirectTo,
	}
}

// Data returns every chart series in one document.
// GET /admin/dashboard/data[?refresh=1]
func (h *DashboardHandler) Data(c *gin.Context) {
	data, err := h.dashboardService.Data(c.Request.Context(), wantsRefresh(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	h.Success(c, data)
}

// UserDeliveries returns delivered orders per requester.
// GET /admin/dashboard/data/user-deliveries
func (h *DashboardHandler) UserDeliveries(c *gin.Context) {
	data, err := h.dashboardService.UserDeliveries(c.Request.Context(), wantsRefresh(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	h.Success(c, data)
}

// ClearCache drops the cached documents and redirects to the dashboard.
// JSON clients get the number of removed keys instead.
// GET /admin/clear-dashboard-cache
func (h *DashboardHandler) ClearCache(c *gin.Context) {
	n, err := h.dashboardService.Clear(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		h.Success(c, gin.H{"cleared": n})
		return
	}
	c.Redirect(http.StatusFound, h.redirectTo)
}

// wantsRefresh reads ?refresh=1. nocache is accepted by clients as a cache
// buster and carries no meaning here.
func wantsRefresh(c *gin.Context) bool {
	v, ok := c.GetQuery("refresh")
	if !ok {
		return false
	}
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
