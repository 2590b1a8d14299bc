package router

import (
	"github.com/disi/commandes/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers bundles every HTTP handler of the application
type Handlers struct {
	System    *handler.SystemHandler
	Auth      *handler.AuthHandler
	Product   *handler.ProductHandler
	Category  *handler.CategoryHandler
	Cart      *handler.CartHandler
	Order     *handler.OrderHandler
	User      *handler.UserHandler
	Dashboard *handler.DashboardHandler
	Invoice   *handler.InvoiceHandler
}

// Guards are the per-group access middlewares. LoginLimit and UploadLimit
// may be nil.
type Guards struct {
	Authenticate gin.HandlerFunc
	Approved     gin.HandlerFunc
	Admin        gin.HandlerFunc
	LoginLimit   gin.HandlerFunc
	UploadLimit  gin.HandlerFunc
}

// Groups builds the route table
func Groups(h Handlers, g Guards) []*DomainGroup {
	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.Health)

	public := NewDomainGroup("auth", "/auth")
	public.POST("/register", h.Auth.Register)
	public.POST("/login", chain(g.LoginLimit, h.Auth.Login)...)
	public.POST("/refresh", h.Auth.Refresh)

	session := NewDomainGroup("session", "/auth").Use(g.Authenticate)
	session.POST("/logout", h.Auth.Logout)
	session.GET("/me", h.Auth.Me)
	session.PUT("/me", h.Auth.UpdateProfile)
	session.PUT("/me/password", h.Auth.ChangePassword)

	shop := NewDomainGroup("shop", "").Use(g.Authenticate, g.Approved)
	shop.GET("/products", h.Product.List)
	shop.GET("/products/:id", h.Product.Get)
	shop.GET("/categories", h.Category.List)
	shop.GET("/invoice/:orderId", h.Invoice.Download)

	cart := shop.Group("cart", "/cart")
	cart.GET("", h.Cart.View)
	cart.DELETE("", h.Cart.Clear)
	cart.POST("/items", h.Cart.AddItem)
	cart.PUT("/items/:productId", h.Cart.SetQuantity)
	cart.DELETE("/items/:productId", h.Cart.RemoveItem)
	cart.POST("/checkout", h.Cart.Checkout)

	orders := shop.Group("orders", "/orders")
	orders.GET("", h.Order.MyOrders)
	orders.GET("/:id", h.Order.MyOrder)

	admin := NewDomainGroup("admin", "/admin").Use(g.Authenticate, g.Admin)

	products := admin.Group("products", "/products")
	products.GET("", h.Product.AdminList)
	products.POST("", h.Product.Create)
	products.GET("/:id", h.Product.AdminGet)
	products.PUT("/:id", h.Product.Update)
	products.DELETE("/:id", h.Product.Delete)
	products.POST("/:id/activate", h.Product.Activate)
	products.POST("/:id/deactivate", h.Product.Deactivate)
	products.POST("/:id/stock", h.Product.AdjustStock)
	products.POST("/:id/image", chain(g.UploadLimit, h.Product.UploadImage)...)

	categories := admin.Group("categories", "/categories")
	categories.GET("", h.Category.List)
	categories.POST("", h.Category.Create)
	categories.GET("/:id", h.Category.Get)
	categories.PUT("/:id", h.Category.Update)
	categories.DELETE("/:id", h.Category.Delete)

	users := admin.Group("users", "/users")
	users.GET("", h.User.List)
	users.POST("", h.User.Create)
	users.GET("/:id", h.User.GetByID)
	users.PUT("/:id", h.User.Update)
	users.DELETE("/:id", h.User.Delete)
	users.POST("/:id/approve", h.User.Approve)
	users.POST("/:id/revoke-approval", h.User.RevokeApproval)
	users.POST("/:id/grant-admin", h.User.GrantAdmin)
	users.POST("/:id/revoke-admin", h.User.RevokeAdmin)
	admin.GET("/administrations", h.User.Administrations)

	adminOrders := admin.Group("orders", "/orders")
	adminOrders.GET("", h.Order.List)
	adminOrders.GET("/:id", h.Order.Get)
	adminOrders.GET("/:id/history", h.Order.History)
	adminOrders.POST("/:id/approve", h.Order.Approve)
	adminOrders.POST("/:id/reject", h.Order.Reject)
	adminOrders.POST("/:id/deliver", h.Order.Deliver)

	admin.GET("/dashboard", h.Dashboard.Data)
	admin.GET("/dashboard/data", h.Dashboard.Data)
	admin.GET("/dashboard/data/user-deliveries", h.Dashboard.UserDeliveries)
	admin.GET("/clear-dashboard-cache", h.Dashboard.ClearCache)

	return []*DomainGroup{system, public, session, shop, admin}
}

// Mount registers the route table on r and attaches it to the engine
func Mount(r *Router, h Handlers, g Guards) {
	for _, group := range Groups(h, g) {
		r.Register(group)
	}
	r.Setup()
}

// chain prepends mw to the handler when it is set
func chain(mw gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	if mw == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{mw, h}
}
