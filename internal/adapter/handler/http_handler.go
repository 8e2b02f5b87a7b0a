package handler

import (
	"errors"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/michaelmgp/obs/internal/core/domain"
	"github.com/michaelmgp/obs/internal/core/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type HTTPHandler struct {
	items        *service.ItemService
	inventories  *service.InventoryService
	transactions *service.TransactionService
	orders       *service.OrderService
	logger       *zap.Logger
}

func NewHTTPHandler(
	items *service.ItemService,
	inventories *service.InventoryService,
	transactions *service.TransactionService,
	orders *service.OrderService,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		items:        items,
		inventories:  inventories,
		transactions: transactions,
		orders:       orders,
		logger:       logger,
	}
}

// Register mounts all routes onto mux. Paths mirror the REST surface:
// /items, /inventories, /inventory-transaction, /orders.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.healthCheck)

	mux.HandleFunc("POST /items", h.createItem)
	mux.HandleFunc("GET /items/{id}", h.getItem)
	mux.HandleFunc("GET /items", h.listItems)
	mux.HandleFunc("PUT /items/{id}", h.updateItem)
	mux.HandleFunc("DELETE /items/{id}", h.deleteItem)

	mux.HandleFunc("POST /inventories", h.createInventory)
	mux.HandleFunc("GET /inventories/{id}", h.getInventory)
	mux.HandleFunc("GET /inventories", h.listInventories)
	mux.HandleFunc("PUT /inventories/{id}", h.updateInventory)
	mux.HandleFunc("DELETE /inventories/{id}", h.deleteInventory)

	mux.HandleFunc("POST /inventory-transaction", h.createTransaction)
	mux.HandleFunc("GET /inventory-transaction/{id}", h.getTransaction)
	mux.HandleFunc("GET /inventory-transaction", h.listTransactions)
	mux.HandleFunc("PUT /inventory-transaction/{id}", h.updateTransaction)
	mux.HandleFunc("DELETE /inventory-transaction/{id}", h.deleteTransaction)

	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("PUT /orders/{id}", h.updateOrder)
	mux.HandleFunc("DELETE /orders/{id}", h.deleteOrder)
}

type genericResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

type itemRequest struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

type inventoryRequest struct {
	ItemID    int64 `json:"itemId"`
	ItemIDAlt int64 `json:"item_id"`
	Stock     int   `json:"stock"`
}

func (r inventoryRequest) itemID() int64 {
	if r.ItemID != 0 {
		return r.ItemID
	}
	return r.ItemIDAlt
}

type transactionRequest struct {
	ItemID    int64  `json:"itemId"`
	ItemIDAlt int64  `json:"item_id"`
	Qty       int    `json:"qty"`
	Type      string `json:"type"`
}

func (r transactionRequest) itemID() int64 {
	if r.ItemID != 0 {
		return r.ItemID
	}
	return r.ItemIDAlt
}

type orderRequest struct {
	ItemID    int64  `json:"itemId"`
	ItemIDAlt int64  `json:"item_id"`
	Qty       int    `json:"qty"`
	RequestID string `json:"request_id"`
}

func (r orderRequest) itemID() int64 {
	if r.ItemID != 0 {
		return r.ItemID
	}
	return r.ItemIDAlt
}

func (h *HTTPHandler) healthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.items.Create(r.Context(), domain.Item{Name: req.Name, Price: req.Price})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, genericResponse{Message: "Item created successfully", Data: item})
}

func (h *HTTPHandler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	item, err := h.items.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Item retrieved successfully", Data: item})
}

func (h *HTTPHandler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.FindAll(r.Context(), pageRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "All items retrieved successfully", Data: items})
}

func (h *HTTPHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.items.Update(r.Context(), domain.Item{ID: id, Name: req.Name, Price: req.Price})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Item updated successfully"})
}

func (h *HTTPHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.items.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Item deleted successfully"})
}

func (h *HTTPHandler) createInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	inv, err := h.inventories.Create(r.Context(), domain.Inventory{ItemID: req.itemID(), Stock: req.Stock})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, genericResponse{Message: "Inventory created successfully", Data: inv})
}

func (h *HTTPHandler) getInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	inv, err := h.inventories.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Inventory retrieved successfully", Data: inv})
}

func (h *HTTPHandler) listInventories(w http.ResponseWriter, r *http.Request) {
	invs, err := h.inventories.FindAll(r.Context(), pageRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "All inventories retrieved successfully", Data: invs})
}

func (h *HTTPHandler) updateInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req inventoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.inventories.Update(r.Context(), domain.Inventory{ID: id, ItemID: req.itemID(), Stock: req.Stock})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Inventory updated successfully"})
}

func (h *HTTPHandler) deleteInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.inventories.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Inventory deleted successfully"})
}

func (h *HTTPHandler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := h.transactions.Record(r.Context(), domain.InventoryTransaction{
		ItemID: req.itemID(),
		Qty:    req.Qty,
		Type:   domain.TransactionType(req.Type),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, genericResponse{Message: "Transaction created successfully", Data: tx})
}

func (h *HTTPHandler) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	tx, err := h.transactions.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Inventory Transaction retrieved successfully", Data: tx})
}

func (h *HTTPHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.transactions.FindAll(r.Context(), pageRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "All transaction retrieved successfully", Data: txs})
}

func (h *HTTPHandler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.transactions.Update(r.Context(), domain.InventoryTransaction{
		ID:     id,
		ItemID: req.itemID(),
		Qty:    req.Qty,
		Type:   domain.TransactionType(req.Type),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Transaction updated successfully"})
}

func (h *HTTPHandler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.transactions.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Transaction deleted successfully"})
}

func (h *HTTPHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orders.Place(r.Context(), req.itemID(), req.Qty, req.RequestID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, genericResponse{Message: "Order created successfully", Data: order})
}

func (h *HTTPHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Order retrieved successfully", Data: order})
}

func (h *HTTPHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.FindAll(r.Context(), pageRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "All orders retrieved successfully", Data: orders})
}

func (h *HTTPHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req orderRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.orders.Update(r.Context(), domain.Order{ID: id, ItemID: req.itemID(), Qty: req.Qty})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Order updated successfully"})
}

func (h *HTTPHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, genericResponse{Message: "Order deleted successfully"})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "Invalid data format",
			Errors:  map[string]string{"body": "invalid request body"},
		})
		return false
	}

	return true
}

func (h *HTTPHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "Validation error",
			Errors:  map[string]string{"id": "must be a positive integer"},
		})
		return 0, false
	}

	return id, true
}

func pageRequest(r *http.Request) domain.PageRequest {
	page := domain.PageRequest{}

	if v := r.URL.Query().Get("pageNo"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.No = n
		}
	}
	if v := r.URL.Query().Get("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Size = n
		}
	}

	return page.Normalize()
}

// writeError translates the business error taxonomy into the structured
// {message, errors} body. Every business error is a 400; anything else is an
// unexpected failure.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation error", Errors: ve.Fields})
		return
	}

	var be *domain.Error
	if errors.As(err, &be) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "Application error",
			Errors:  map[string]string{be.Title: be.Cause},
		})
		return
	}

	h.logger.Error("request failed", zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Message: "Internal server error",
		Errors:  map[string]string{"error": "internal error"},
	})
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}
