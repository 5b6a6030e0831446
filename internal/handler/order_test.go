package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GoPolymarket/polydesk/internal/chain"
	"github.com/GoPolymarket/polydesk/internal/middleware"
	"github.com/GoPolymarket/polydesk/internal/model"
	"github.com/GoPolymarket/polydesk/internal/signer"
	"github.com/GoPolymarket/polydesk/internal/wallet"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderRouter(t *testing.T, w *wallet.Wallet) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := signer.New(w, chain.NewNetworks(nil), 137)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.POST("/v1/orders/sign", NewOrderHandler(s).SignOrder)
	return r
}

func connectedWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	w, err := wallet.FromPrivateKey(hexutil.Encode(crypto.FromECDSA(key)))
	require.NoError(t, err)
	return w
}

func signOrder(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/sign", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSignOrderDefaultsToPositionSchema(t *testing.T) {
	r := orderRouter(t, connectedWallet(t))

	rec := signOrder(r, `{
		"market_id":"m1","token_id":"999","side":"BUY","price":"0.50","size":"100"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.SignedOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "position-token", resp.Schema)
	require.NotNil(t, resp.Position)
	assert.Nil(t, resp.Generic)
	assert.Equal(t, "50000000", resp.Position.MakerAmount)
	assert.Equal(t, "100000000", resp.Position.TakerAmount)
	assert.Equal(t, 0, resp.Position.Side)
	assert.Equal(t, 132, len(resp.Signature))
}

func TestSignOrderGenericSchema(t *testing.T) {
	r := orderRouter(t, connectedWallet(t))

	rec := signOrder(r, `{
		"market_id":"m1","side":"SELL","price":"0.40","size":"10","schema":"generic"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.SignedOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "generic", resp.Schema)
	require.NotNil(t, resp.Generic)
	assert.Nil(t, resp.Position)
	assert.Equal(t, "0.40", resp.Generic.Price)
}

func TestSignOrderValidation(t *testing.T) {
	r := orderRouter(t, connectedWallet(t))

	rec := signOrder(r, `{"market_id":"m1","side":"HOLD","price":"0.5","size":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = signOrder(r, `{"side":"BUY","price":"0.5","size":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = signOrder(r, `{"market_id":"m1","token_id":"9","side":"BUY","price":"1.5","size":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestSignOrderWithoutWallet(t *testing.T) {
	r := orderRouter(t, nil)

	rec := signOrder(r, `{"market_id":"m1","token_id":"9","side":"BUY","price":"0.5","size":"1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "WALLET_NOT_CONNECTED")
}
