package delivery

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartEndpointsSelfOrAdmin(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, "Widget", "10.00", 5)

	otherCart := fmt.Sprintf("/api/cart/%d", ts.customerID+100)
	rec := ts.do(t, http.MethodGet, otherCart, ts.customerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "a customer may only read their own cart")

	ownCart := fmt.Sprintf("/api/cart/%d", ts.customerID)
	rec = ts.do(t, http.MethodPost, ownCart, ts.customerToken, gin.H{"productId": p.ID, "quantity": 2})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Admins can reach any cart.
	rec = ts.do(t, http.MethodGet, ownCart, ts.adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartLineLifecycleEndpoints(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, "Widget", "10.00", 5)
	cartPath := fmt.Sprintf("/api/cart/%d", ts.customerID)

	rec := ts.do(t, http.MethodPost, cartPath, ts.customerToken, gin.H{"productId": p.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPut, cartPath, ts.customerToken, gin.H{"productId": p.ID, "quantity": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, cartPath, ts.customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, float64(4), items[0].(map[string]interface{})["quantity"])

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", cartPath, p.ID), ts.customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, cartPath, ts.customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, true, cleared["cleared"])
}

func TestSetCartLineMissingProduct(t *testing.T) {
	ts := newTestServer(t)
	cartPath := fmt.Sprintf("/api/cart/%d", ts.customerID)

	rec := ts.do(t, http.MethodPut, cartPath, ts.customerToken, gin.H{"productId": 999, "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
