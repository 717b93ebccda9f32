package routes

import (
	"fmt"
	"net/http"

	"fancystore/auth"
	"fancystore/cart"
	"fancystore/checkout"
	"fancystore/filemgr"
	"fancystore/middleware"
	"fancystore/orders"
	"fancystore/pay"
	"fancystore/products"
	"fancystore/stockfeed"

	"github.com/julienschmidt/httprouter"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth     *middleware.Auth
	Users    *auth.Handler
	Products *products.Handler
	Cart     *cart.Handler
	Checkout *checkout.Handler
	Payments *pay.Handler
	Orders   *orders.Handler
	Images   *filemgr.Handler
	Feed     *stockfeed.Hub
}

// Every route is served at the root and again under /api.
var prefixes = []string{"", "/api"}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func New(h Handlers) *httprouter.Router {
	router := httprouter.New()
	for _, p := range prefixes {
		router.GET(p+"/health", Index)
		AddAuthRoutes(router, p, h)
		AddProductRoutes(router, p, h)
		AddCartRoutes(router, p, h)
		AddCheckoutRoutes(router, p, h)
		AddOrderRoutes(router, p, h)
		AddUtilityRoutes(router, p, h)
	}
	return router
}

func AddAuthRoutes(router *httprouter.Router, p string, h Handlers) {
	router.POST(p+"/register", h.Users.Register)
	router.POST(p+"/login", h.Users.Login)
	router.POST(p+"/logout", h.Auth.Authenticate(h.Users.Logout))
}

func AddProductRoutes(router *httprouter.Router, p string, h Handlers) {
	admin := middleware.Chain(h.Auth.Authenticate, middleware.RequireAdmin)

	router.GET(p+"/products", h.Products.List)
	router.POST(p+"/products", admin(h.Products.Create))
	router.PUT(p+"/products/:id", admin(h.Products.Update))
	router.DELETE(p+"/products/:id", admin(h.Products.Delete))
}

func AddCartRoutes(router *httprouter.Router, p string, h Handlers) {
	shopper := middleware.Chain(h.Auth.Authenticate, middleware.ForbidAdmin)

	router.GET(p+"/cart", h.Auth.Authenticate(h.Cart.GetCart))
	router.POST(p+"/cart", shopper(h.Cart.AddToCart))
	router.PUT(p+"/cart/:productId", shopper(h.Cart.UpdateQuantity))
	router.DELETE(p+"/cart/:productId", shopper(h.Cart.RemoveFromCart))
}

// AddCheckoutRoutes mounts both checkout paths and payment settlement.
func AddCheckoutRoutes(router *httprouter.Router, p string, h Handlers) {
	shopper := middleware.Chain(h.Auth.Authenticate, middleware.ForbidAdmin)

	router.POST(p+"/cart/checkout", shopper(h.Checkout.CheckoutCart))
	router.POST(p+"/create-razorpay-order", h.Auth.Authenticate(h.Checkout.CreateRazorpayOrder))
	router.POST(p+"/verify-payment", h.Auth.Authenticate(h.Payments.VerifyPayment))
	router.POST(p+"/payment-failed", h.Auth.Authenticate(h.Payments.PaymentFailed))
}

func AddOrderRoutes(router *httprouter.Router, p string, h Handlers) {
	router.GET(p+"/orders", middleware.Chain(h.Auth.Authenticate, middleware.RequireAdmin)(h.Orders.ListOrders))
	router.GET(p+"/orders/:id/receipt", h.Auth.Authenticate(h.Orders.PrintReceipt))
}

func AddUtilityRoutes(router *httprouter.Router, p string, h Handlers) {
	router.POST(p+"/process-image", h.Images.ProcessImage)
	router.GET(p+"/ws/products", h.Feed.Handler)
}
