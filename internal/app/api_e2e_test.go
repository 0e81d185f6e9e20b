//go:build integration

package app_test

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := do(t, http.MethodGet, path, "", nil)
			assert.Equal(t, http.StatusOK, resp.Status)
			assert.Equal(t, "ok", resp.Body["status"])
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestAuthFlow(t *testing.T) {
	email := fmt.Sprintf("flow-%d@example.com", time.Now().UnixNano())
	token := registerUser(t, email)

	dup := do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"firstName":       "Test",
		"lastName":        "User",
		"email":           email,
		"password":        "secret123",
		"confirmPassword": "secret123",
	})
	assert.Equal(t, http.StatusConflict, dup.Status)

	me := do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, me.Status)
	assert.Equal(t, email, me.Body["email"])
	assert.Equal(t, "User", me.Body["role"])

	bad := do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": email, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, bad.Status)

	valid := do(t, http.MethodGet, "/api/auth/validate-token", token, nil)
	require.Equal(t, http.StatusOK, valid.Status)
	assert.Equal(t, true, valid.Body["isValid"])
}

func TestCatalogWritesRequireAdmin(t *testing.T) {
	user := registerUser(t, fmt.Sprintf("writer-%d@example.com", time.Now().UnixNano()))
	body := map[string]any{"name": "Test Gadget", "description": "e2e"}

	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodPost, "/api/products", "", body).Status)
	assert.Equal(t, http.StatusForbidden, do(t, http.MethodPost, "/api/products", user, body).Status)

	admin := login(t, adminEmail, adminPassword)
	created := do(t, http.MethodPost, "/api/products", admin, body)
	require.Equal(t, http.StatusCreated, created.Status, created.Body)
	id := created.Body["productId"].(float64)
	assert.Equal(t, "/api/products/"+strconv.Itoa(int(id)), created.Header.Get("Location"))

	deleted := do(t, http.MethodDelete, "/api/products/"+strconv.Itoa(int(id)), admin, nil)
	assert.Equal(t, http.StatusNoContent, deleted.Status)
}

func TestLatestQuotation(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/quotations/product/5/latest", "", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 8.5, resp.Body["pricePerUnit"])
	assert.Equal(t, float64(2), resp.Body["distributorId"])
}

func TestOrderLifecycle(t *testing.T) {
	token := registerUser(t, fmt.Sprintf("buyer-%d@example.com", time.Now().UnixNano()))

	created := do(t, http.MethodPost, "/api/orders", token, map[string]any{
		"customerId": 1,
		"items": []map[string]any{
			{"productId": 5, "quantity": 2},
			{"productId": 3, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, created.Status, created.Body)
	assert.Equal(t, "Alice Johnson", created.Body["customerName"])
	assert.Equal(t, 146.9, created.Body["totalAmount"])

	items := created.Body["orderItems"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "Vertex 27 Monitor", first["productName"])
	assert.Equal(t, 8.5, first["unitPrice"])
	assert.Equal(t, float64(17), first["totalPrice"])

	id := strconv.Itoa(int(created.Body["orderId"].(float64)))
	got := do(t, http.MethodGet, "/api/orders/"+id, token, nil)
	require.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, created.Body["totalAmount"], got.Body["totalAmount"])

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, "/api/orders/"+id, token, nil).Status)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, "/api/orders/"+id, token, nil).Status)
}

func TestOrderRejected(t *testing.T) {
	token := registerUser(t, fmt.Sprintf("reject-%d@example.com", time.Now().UnixNano()))

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty items", map[string]any{"customerId": 1, "items": []any{}}},
		{"unknown customer", map[string]any{"customerId": 999, "items": []map[string]any{{"productId": 1, "quantity": 1}}}},
		{"unknown product", map[string]any{"customerId": 1, "items": []map[string]any{{"productId": 999, "quantity": 1}}}},
		{"zero quantity", map[string]any{"customerId": 1, "items": []map[string]any{{"productId": 1, "quantity": 0}}}},
		{"no pricing", map[string]any{"customerId": 1, "items": []map[string]any{{"productId": 6, "quantity": 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, "/api/orders", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Status, resp.Body)
		})
	}
}
