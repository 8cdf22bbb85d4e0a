package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder_SendsMinorUnits(t *testing.T) {
	var got gatewayOrderRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_test_secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(gatewayOrderResponse{
			ID:       "order_abc",
			Amount:   got.Amount,
			Currency: got.Currency,
			Receipt:  got.Receipt,
			Status:   "created",
		})
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("rzp_test_key", "rzp_test_secret", srv.URL)

	id, err := client.CreateOrder(context.Background(), 58100, "INR", "order_rcpt_12", map[string]string{"order_id": "12"})
	require.NoError(t, err)

	assert.Equal(t, "order_abc", id)
	assert.Equal(t, int64(58100), got.Amount)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, "order_rcpt_12", got.Receipt)
}

func TestCreateOrder_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("k", "s", srv.URL)

	_, err := client.CreateOrder(context.Background(), 100, "INR", "order_rcpt_1", nil)
	assert.Error(t, err)
}

func TestCreateOrder_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gatewayOrderResponse{Status: "created"})
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("k", "s", srv.URL)

	_, err := client.CreateOrder(context.Background(), 100, "INR", "order_rcpt_1", nil)
	assert.Error(t, err)
}

func TestCreateOrder_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("k", "s", srv.URL)
	client.httpClient.Timeout = 20 * time.Millisecond

	_, err := client.CreateOrder(context.Background(), 100, "INR", "order_rcpt_1", nil)
	assert.Error(t, err)
}

func sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	client := NewClient("key", "secret")

	valid := sign("secret", "order_abc", "pay_xyz")
	assert.True(t, client.VerifySignature("order_abc", "pay_xyz", valid))

	// Tampered signature.
	assert.False(t, client.VerifySignature("order_abc", "pay_xyz", valid+"00"))

	// Signature for a different payment.
	other := sign("secret", "order_abc", "pay_other")
	assert.False(t, client.VerifySignature("order_abc", "pay_xyz", other))

	// Wrong secret.
	forged := sign("not-the-secret", "order_abc", "pay_xyz")
	assert.False(t, client.VerifySignature("order_abc", "pay_xyz", forged))
}
