package orders

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"druma-petcare/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/products", func(pr chi.Router) {
		pr.Post("/", createProductHandler(svc))
		pr.Get("/", listProductsHandler(svc))
		pr.Get("/{productID}", getProductHandler(svc))
		pr.Patch("/{productID}", updateProductHandler(svc))
	})

	r.Route("/orders", func(or chi.Router) {
		or.Post("/", createOrderHandler(svc))
		or.Get("/{orderID}", getOrderHandler(svc))
		or.Post("/{orderID}/pay", orderTransitionHandler(svc, StatusPaid))
		or.Post("/{orderID}/ship", orderTransitionHandler(svc, StatusShipped))
		or.Post("/{orderID}/deliver", orderTransitionHandler(svc, StatusDelivered))
		or.Post("/{orderID}/cancel", orderTransitionHandler(svc, StatusCancelled))
	})

	r.Get("/me/orders", listMyOrdersHandler(svc))
}

type productPayload struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
}

type productResponse struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type orderLinePayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items           []orderLinePayload `json:"items"`
	ShippingAddress string             `json:"shipping_address,omitempty"`
}

type orderItemResponse struct {
	ProductID      string `json:"product_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	Items           []orderItemResponse `json:"items"`
	TotalCents      int64               `json:"total_cents"`
	Status          OrderStatus         `json:"status"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// createProductHandler godoc
// @Summary Alta de producto en el catálogo
// @Tags shop
// @Accept json
// @Produce json
// @Param payload body productPayload true "Producto"
// @Success 201 {object} productResponse
// @Failure 400 {string} string "datos inválidos"
// @Failure 401 {string} string "unauthorized"
// @Router /products [post]
func createProductHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}

		var req productPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.CreateProduct(r.Context(), ProductInput{
			SKU:         req.SKU,
			Name:        req.Name,
			Description: req.Description,
			PriceCents:  req.PriceCents,
			Stock:       req.Stock,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toProductResponse(p))
	}
}

// listProductsHandler godoc
// @Summary Catálogo de productos
// @Tags shop
// @Produce json
// @Param all query bool false "Incluir productos inactivos"
// @Success 200 {array} productResponse
// @Router /products [get]
func listProductsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		onlyActive := r.URL.Query().Get("all") != "true"
		items, err := svc.ListProducts(r.Context(), onlyActive)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]productResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toProductResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getProductHandler godoc
// @Summary Ver un producto
// @Tags shop
// @Produce json
// @Param productID path string true "ID del producto"
// @Success 200 {object} productResponse
// @Failure 404 {string} string "product not found"
// @Router /products/{productID} [get]
func getProductHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetProduct(r.Context(), chi.URLParam(r, "productID"))
		if err != nil {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toProductResponse(p))
	}
}

// updateProductHandler godoc
// @Summary Editar un producto
// @Tags shop
// @Accept json
// @Produce json
// @Param productID path string true "ID del producto"
// @Param payload body productPayload true "Campos a modificar"
// @Success 200 {object} productResponse
// @Failure 400 {string} string "datos inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "product not found"
// @Router /products/{productID} [patch]
func updateProductHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}

		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
			PriceCents  *int64  `json:"price_cents"`
			Stock       *int    `json:"stock"`
			Active      *bool   `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.UpdateProduct(r.Context(), chi.URLParam(r, "productID"), ProductUpdate{
			Name:        req.Name,
			Description: req.Description,
			PriceCents:  req.PriceCents,
			Stock:       req.Stock,
			Active:      req.Active,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProductResponse(p))
	}
}

// createOrderHandler godoc
// @Summary Crear un pedido
// @Description Compra productos del catálogo. Precio y nombre quedan congelados por línea; el stock se descuenta al crear. Todo o nada: si una línea falla, no se crea el pedido.
// @Tags shop
// @Accept json
// @Produce json
// @Param payload body createOrderRequest true "Líneas del pedido"
// @Success 201 {object} orderResponse
// @Failure 400 {string} string "datos inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 409 {string} string "sin stock"
// @Router /orders [post]
func createOrderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		lines := make([]OrderLine, 0, len(req.Items))
		for _, it := range req.Items {
			lines = append(lines, OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}

		o, err := svc.CreateOrder(r.Context(), claims, req.ShippingAddress, lines)
		if err != nil {
			if errors.Is(err, ErrOutOfStock) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toOrderResponse(o))
	}
}

// getOrderHandler godoc
// @Summary Ver un pedido
// @Tags shop
// @Produce json
// @Param orderID path string true "ID del pedido"
// @Success 200 {object} orderResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "order not found"
// @Router /orders/{orderID} [get]
func getOrderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}

		o, err := svc.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		if o.UserID != claims {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(o))
	}
}

// orderTransitionHandler godoc
// @Summary Transicionar un pedido
// @Description Mueve el pedido por su máquina de estados (pay/ship/deliver/cancel). Cancelar repone el stock. Estados finales inmutables (409).
// @Tags shop
// @Accept json
// @Produce json
// @Param orderID path string true "ID del pedido"
// @Success 200 {object} orderResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "order not found"
// @Failure 409 {string} string "transición inválida"
// @Router /orders/{orderID}/pay [post]
func orderTransitionHandler(svc *Service, target OrderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req struct {
			Reason string `json:"reason,omitempty"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		o, err := svc.Transition(r.Context(), chi.URLParam(r, "orderID"), claims, target, req.Reason)
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(o))
	}
}

// listMyOrdersHandler godoc
// @Summary Listar mis pedidos
// @Tags shop
// @Produce json
// @Success 200 {array} orderResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/orders [get]
func listMyOrdersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}

		items, err := svc.ListByUser(r.Context(), claims)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]orderResponse, 0, len(items))
		for _, o := range items {
			out = append(out, toOrderResponse(o))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func toProductResponse(p Product) productResponse {
	return productResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toOrderResponse(o Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:      it.ProductID,
			SKU:            it.SKU,
			Name:           it.Name,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
		})
	}
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		TotalCents:      o.TotalCents,
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
		CancelReason:    o.CancelReason,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
