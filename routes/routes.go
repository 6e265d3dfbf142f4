package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/zumerkk/entas-sub001/controllers"
	"github.com/zumerkk/entas-sub001/middleware"
)

// Controllers groups the handlers registered on the router.
type Controllers struct {
	Health        *controllers.HealthController
	AttributeSets *controllers.AttributeSetController
	Variants      *controllers.VariantController
	Payments      *controllers.PaymentController
}

// RegisterRoutes sets up all catalog and payment routes.
func RegisterRoutes(r *gin.Engine, c Controllers, authOpts middleware.AuthOptions) {
	r.GET("/health", c.Health.Health)

	registerAttributeSetRoutes(r, c.AttributeSets, authOpts)
	registerVariantRoutes(r, c.Variants, authOpts)
	registerPaymentRoutes(r, c.Payments, authOpts)
}

func registerAttributeSetRoutes(r *gin.Engine, ac *controllers.AttributeSetController, authOpts middleware.AuthOptions) {
	sets := r.Group("/attribute-sets")
	sets.Use(middleware.AuthMiddleware(authOpts))
	sets.GET("", ac.ListAttributeSets)
	sets.GET("/:id", ac.GetAttributeSet)

	// Admin-only routes
	admin := sets.Group("")
	admin.Use(middleware.AdminOnly())
	admin.POST("", ac.CreateAttributeSet)
	admin.PUT("/:id", ac.UpdateAttributeSet)
	admin.POST("/:id/deactivate", ac.DeactivateAttributeSet)
	admin.POST("/:id/activate", ac.ActivateAttributeSet)
}

func registerVariantRoutes(r *gin.Engine, vc *controllers.VariantController, authOpts middleware.AuthOptions) {
	authed := middleware.AuthMiddleware(authOpts)

	r.GET("/products/:productId/variants", authed, vc.ListProductVariants)

	variants := r.Group("/variants")
	variants.Use(authed)
	variants.GET("/:id", vc.GetVariant)
	variants.GET("/sku/:sku", vc.GetVariantBySKU)

	admin := variants.Group("")
	admin.Use(middleware.AdminOnly())
	admin.POST("", vc.CreateVariant)
	admin.PUT("/:id", vc.UpdateVariant)
	admin.POST("/:id/deactivate", vc.DeactivateVariant)
	admin.POST("/:id/activate", vc.ActivateVariant)
}

func registerPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, authOpts middleware.AuthOptions) {
	// Stripe webhook (no auth, verified by signature)
	r.POST("/payments/webhooks/stripe", pc.StripeWebhook)

	payments := r.Group("/payments")
	payments.Use(middleware.AuthMiddleware(authOpts))
	payments.POST("", pc.CreatePayment)
	payments.GET("", pc.ListPayments)
	payments.GET("/:id", pc.GetPayment)

	admin := payments.Group("")
	admin.Use(middleware.AdminOnly())
	admin.POST("/:id/transition", pc.TransitionPayment)
	admin.PATCH("/:id/notes", pc.UpdateNotes)
	admin.POST("/:id/republish", pc.RepublishEvent)
}
