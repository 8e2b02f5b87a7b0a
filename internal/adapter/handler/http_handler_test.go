package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/michaelmgp/obs/internal/adapter/handler"
	"github.com/michaelmgp/obs/internal/adapter/storage"
	"github.com/michaelmgp/obs/internal/core/service"
)

type envelope struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	logger := zap.NewNop()

	h := handler.NewHTTPHandler(
		service.NewItemService(store),
		service.NewInventoryService(store),
		service.NewTransactionService(store, logger),
		service.NewOrderService(store, nil, logger),
		logger,
	)

	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, store
}

func do(t *testing.T, method, url, body string) (int, envelope) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))

	return resp.StatusCode, env
}

func TestHTTP_ItemCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := do(t, http.MethodPost, srv.URL+"/items", `{"name":"Mineral Water","price":2500}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Item created successfully", env.Message)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotZero(t, created.ID)

	status, env = do(t, http.MethodGet, fmt.Sprintf("%s/items/%d", srv.URL, created.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Item retrieved successfully", env.Message)

	status, env = do(t, http.MethodPut, fmt.Sprintf("%s/items/%d", srv.URL, created.ID), `{"name":"Sparkling Water","price":3000}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Item updated successfully", env.Message)

	status, env = do(t, http.MethodGet, srv.URL+"/items", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "All items retrieved successfully", env.Message)

	var page struct {
		Content       []json.RawMessage `json:"content"`
		TotalElements int64             `json:"totalElements"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.TotalElements)

	status, env = do(t, http.MethodDelete, fmt.Sprintf("%s/items/%d", srv.URL, created.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Item deleted successfully", env.Message)

	status, env = do(t, http.MethodGet, fmt.Sprintf("%s/items/%d", srv.URL, created.ID), "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Application error", env.Message)
	assert.Equal(t, "item not found", env.Errors["not found error"])
}

func TestHTTP_ItemValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := do(t, http.MethodPost, srv.URL+"/items", `{"name":"","price":-1}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation error", env.Message)
	assert.Contains(t, env.Errors, "name")
	assert.Contains(t, env.Errors, "price")

	status, env = do(t, http.MethodPost, srv.URL+"/items", `{broken`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid data format", env.Message)

	status, env = do(t, http.MethodGet, srv.URL+"/items/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation error", env.Message)
	assert.Contains(t, env.Errors, "id")
}

func TestHTTP_DuplicateItem(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _ := do(t, http.MethodPost, srv.URL+"/items", `{"name":"Soap","price":100}`)
	require.Equal(t, http.StatusCreated, status)

	status, env := do(t, http.MethodPost, srv.URL+"/items", `{"name":"Soap","price":200}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Application error", env.Message)
	assert.Equal(t, "item already registered", env.Errors["Duplicate Error"])
}

func TestHTTP_TransactionFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := do(t, http.MethodPost, srv.URL+"/items", `{"name":"Soap","price":100}`)
	require.Equal(t, http.StatusCreated, status)
	var item struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))

	// item_id and itemId both address the same field
	body := fmt.Sprintf(`{"item_id":%d,"qty":10,"type":"T"}`, item.ID)
	status, env = do(t, http.MethodPost, srv.URL+"/inventory-transaction", body)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Transaction created successfully", env.Message)

	status, env = do(t, http.MethodGet, srv.URL+"/inventories", "")
	require.Equal(t, http.StatusOK, status)
	var invPage struct {
		Content []struct {
			Stock int `json:"stock"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &invPage))
	require.Len(t, invPage.Content, 1)
	assert.Equal(t, 10, invPage.Content[0].Stock)

	// withdrawal beyond stock
	body = fmt.Sprintf(`{"itemId":%d,"qty":11,"type":"W"}`, item.ID)
	status, env = do(t, http.MethodPost, srv.URL+"/inventory-transaction", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient amount of stock", env.Errors["limited stock"])

	// unknown type
	body = fmt.Sprintf(`{"itemId":%d,"qty":1,"type":"X"}`, item.ID)
	status, env = do(t, http.MethodPost, srv.URL+"/inventory-transaction", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation error", env.Message)
	assert.Contains(t, env.Errors, "type")

	status, env = do(t, http.MethodGet, srv.URL+"/inventory-transaction", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "All transaction retrieved successfully", env.Message)
}

func TestHTTP_TransactionWithdrawalWithoutStock(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := do(t, http.MethodPost, srv.URL+"/items", `{"name":"Soap","price":100}`)
	require.Equal(t, http.StatusCreated, status)
	var item struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))

	body := fmt.Sprintf(`{"itemId":%d,"qty":1,"type":"W"}`, item.ID)
	status, env = do(t, http.MethodPost, srv.URL+"/inventory-transaction", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "stock is out cannot perform withdrawal", env.Errors["out of stock"])
}

func TestHTTP_OrderFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := do(t, http.MethodPost, srv.URL+"/items", `{"name":"Soap","price":100}`)
	require.Equal(t, http.StatusCreated, status)
	var item struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))

	body := fmt.Sprintf(`{"itemId":%d,"qty":5,"type":"T"}`, item.ID)
	status, _ = do(t, http.MethodPost, srv.URL+"/inventory-transaction", body)
	require.Equal(t, http.StatusCreated, status)

	body = fmt.Sprintf(`{"itemId":%d,"qty":2}`, item.ID)
	status, env = do(t, http.MethodPost, srv.URL+"/orders", body)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Order created successfully", env.Message)

	var order struct {
		ID      int64  `json:"id"`
		OrderNo string `json:"orderNo"`
		Price   int    `json:"price"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "O1", order.OrderNo)
	assert.Equal(t, 100, order.Price)

	status, env = do(t, http.MethodPost, srv.URL+"/orders", body)
	require.Equal(t, http.StatusCreated, status)
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "O2", order.OrderNo)

	// only 1 left in stock
	status, env = do(t, http.MethodPost, srv.URL+"/orders", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient amount of stock", env.Errors["limited stock"])

	status, env = do(t, http.MethodGet, fmt.Sprintf("%s/orders/%d", srv.URL, order.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Order retrieved successfully", env.Message)

	status, env = do(t, http.MethodDelete, fmt.Sprintf("%s/orders/%d", srv.URL, order.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Order deleted successfully", env.Message)
}

func TestHTTP_OrderUnknownItem(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := do(t, http.MethodPost, srv.URL+"/orders", `{"itemId":77,"qty":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "item is not found", env.Errors["not found error"])
}

func TestHTTP_Pagination(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		status, _ := do(t, http.MethodPost, srv.URL+"/items", fmt.Sprintf(`{"name":%q,"price":1}`, name))
		require.Equal(t, http.StatusCreated, status)
	}

	status, env := do(t, http.MethodGet, srv.URL+"/items?pageNo=1&pageSize=2", "")
	require.Equal(t, http.StatusOK, status)

	var page struct {
		Content       []struct{ Name string } `json:"content"`
		PageNo        int                     `json:"pageNo"`
		PageSize      int                     `json:"pageSize"`
		TotalElements int64                   `json:"totalElements"`
		TotalPages    int                     `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.PageNo)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Gamma", page.Content[0].Name)
}

func TestHTTP_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
