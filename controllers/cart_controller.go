package controllers

import (
	"context"
	"errors"
	"net/http"

	"cretan-guru/middleware"
	"cretan-guru/models"
	"cretan-guru/repositories"
	"cretan-guru/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductLookup interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
}

// CartController builds a fresh CartStore per request, loads it from the
// repository and answers with the resulting optimistic state.
type CartController struct {
	Repo          services.CartLineRepository
	Products      ProductLookup
	Publisher     services.EventPublisher
	Logger        *zap.Logger
	SessionMaxAge int
	SecureCookies bool
}

type cartRequest struct {
	store    *services.CartStore
	recorder *services.NotificationRecorder
}

func (ctrl *CartController) identity(c *gin.Context, user *models.AuthUser) *services.IdentityContext {
	users := services.UserProviderFunc(func(context.Context) (*models.AuthUser, error) {
		if user != nil {
			return user, nil
		}
		return middleware.CurrentUser(c), nil
	})
	return services.NewIdentityContext(users, middleware.NewCookieStore(c, ctrl.SessionMaxAge, ctrl.SecureCookies))
}

func (ctrl *CartController) newCart(c *gin.Context, user *models.AuthUser) *cartRequest {
	logger := ctrl.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := ctrl.Publisher
	if publisher == nil {
		publisher = services.NopPublisher{}
	}

	recorder := services.NewNotificationRecorder()
	store := services.NewCartStore(
		ctrl.identity(c, user),
		ctrl.Repo,
		services.MultiNotifier{recorder, services.NewLogNotifier(logger)},
		services.WithLogger(logger),
		services.WithPublisher(publisher),
	)
	return &cartRequest{store: store, recorder: recorder}
}

func (r *cartRequest) respond(c *gin.Context, message string) {
	c.JSON(http.StatusOK, models.CartResponse{
		Success:       true,
		Message:       message,
		Data:          r.store.State(),
		Notifications: r.recorder.Notifications(),
	})
}

// @Summary Get cart
// @Description Get the current visitor's cart (session cookie or bearer token)
// @Tags Cart
// @Produce json
// @Success 200 {object} models.CartResponse
// @Router /cart [get]
func (ctrl *CartController) GetCart(c *gin.Context) {
	cart := ctrl.newCart(c, nil)
	cart.store.Load(c.Request.Context())
	cart.respond(c, "Cart retrieved")
}

// @Summary Add to cart
// @Description Add a product to the cart, merging with an existing line
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body models.AddCartItemRequest true "Cart item"
// @Success 200 {object} models.CartResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /cart/items [post]
func (ctrl *CartController) AddItem(c *gin.Context) {
	var req models.AddCartItemRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Message: "Invalid request", Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	product, err := ctrl.Products.GetProductByID(ctx, req.ProductID)
	if errors.Is(err, repositories.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Success: false, Message: "Product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Success: false, Message: "Failed to look up product", Error: err.Error()})
		return
	}

	cart := ctrl.newCart(c, nil)
	cart.store.Load(ctx)
	cart.store.AddItem(ctx, product.Ref(), req.Quantity)
	cart.respond(c, "Cart updated")
}

// @Summary Update cart item quantity
// @Description Set a line's quantity; zero or less removes the line
// @Tags Cart
// @Accept json
// @Produce json
// @Param productId path string true "Product ID"
// @Param request body models.UpdateCartItemRequest true "Quantity"
// @Success 200 {object} models.CartResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /cart/items/{productId} [patch]
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	var req models.UpdateCartItemRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Message: "Invalid request", Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	cart := ctrl.newCart(c, nil)
	cart.store.Load(ctx)
	cart.store.UpdateQuantity(ctx, c.Param("productId"), *req.Quantity)
	cart.respond(c, "Cart updated")
}

// @Summary Remove cart item
// @Tags Cart
// @Produce json
// @Param productId path string true "Product ID"
// @Success 200 {object} models.CartResponse
// @Router /cart/items/{productId} [delete]
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	ctx := c.Request.Context()
	cart := ctrl.newCart(c, nil)
	cart.store.Load(ctx)
	cart.store.RemoveItem(ctx, c.Param("productId"))
	cart.respond(c, "Cart updated")
}

// @Summary Clear cart
// @Tags Cart
// @Produce json
// @Success 200 {object} models.CartResponse
// @Router /cart [delete]
func (ctrl *CartController) ClearCart(c *gin.Context) {
	ctx := c.Request.Context()
	cart := ctrl.newCart(c, nil)
	cart.store.Load(ctx)
	cart.store.Clear(ctx)
	cart.respond(c, "Cart cleared")
}

// @Summary Merge guest cart
// @Description Move the session cart into the signed-in user's cart
// @Tags Cart
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.CartResponse
// @Router /cart/merge [post]
func (ctrl *CartController) MergeCart(c *gin.Context) {
	cart := ctrl.newCart(c, nil)
	cart.store.MergeSession(c.Request.Context())
	cart.respond(c, "Cart merged")
}

// MergeFor merges the request's session cart into user's cart; used right after sign-in,
// before the client holds a bearer token.
func (ctrl *CartController) MergeFor(c *gin.Context, user *models.AuthUser) []models.Notification {
	cart := ctrl.newCart(c, user)
	cart.store.MergeSession(c.Request.Context())
	return cart.recorder.Notifications()
}
