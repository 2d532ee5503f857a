package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/middleware"
	"order-reconciler/internal/service"
)

type CheckoutHandler struct {
	checkout service.CheckoutService
	logger   *zap.Logger
}

func NewCheckoutHandler(checkout service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		logger:   logger,
	}
}

type cartItemRequest struct {
	ItemType    string           `json:"itemType" binding:"required,oneof=book merch"`
	ProductID   string           `json:"productId" binding:"required"`
	Title       string           `json:"title" binding:"required"`
	VariantName string           `json:"variantName"`
	Quantity    int              `json:"quantity" binding:"required,min=1"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
}

type shippingRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Address string `json:"address"`
}

type checkoutRequest struct {
	Items        []cartItemRequest `json:"items" binding:"required,min=1,dive"`
	Shipping     shippingRequest   `json:"shipping" binding:"required"`
	ShippingCost decimal.Decimal   `json:"shippingCost"`
	Tax          decimal.Decimal   `json:"tax"`
	Total        *decimal.Decimal  `json:"total"`
}

// CreateOrder opens a payment session for the caller's cart and returns the
// provider's authorization URL.
func (h *CheckoutHandler) CreateOrder(c *gin.Context) {
	identity, err := middleware.CurrentIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}
	for _, it := range req.Items {
		if it.Price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request format",
				"details": "price must not be negative: " + it.ProductID,
			})
			return
		}
	}

	in := service.CheckoutRequest{
		CustomerID: identity.CustomerID,
		Shipping: domain.ShippingInfo{
			Name:    req.Shipping.Name,
			Email:   req.Shipping.Email,
			Address: req.Shipping.Address,
		},
		ShippingCost: req.ShippingCost,
		Tax:          req.Tax,
		Total:        req.Total,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.CartItem{
			ItemType:    domain.ItemType(it.ItemType),
			ProductID:   it.ProductID,
			Title:       it.Title,
			VariantName: it.VariantName,
			Quantity:    it.Quantity,
			Price:       *it.Price,
		})
	}

	res, err := h.checkout.Checkout(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
