package rest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"itdx-mm-bot/internal/itdx"
	"itdx-mm-bot/internal/itdx/sign"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func testSigner(t *testing.T) *sign.Signer {
	t.Helper()
	s, err := sign.New("key-id", "secret")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return s
}

func referenceMAC(message string) string {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPublicCallCarriesNoAuthHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(sign.HeaderAPIKey) != "" || r.Header.Get(sign.HeaderSignature) != "" {
			t.Errorf("public endpoint received auth headers")
		}
		io.WriteString(w, `{"summaries":[{"symbol":"BTC-PERP","markPrice":"50000"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil, zap.NewNop())
	summaries, err := c.Summaries(context.Background())
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 1 || !summaries[0].MarkPrice.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestPrivateCallSignsPathAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce := r.Header.Get(sign.HeaderNonce)
		if r.Header.Get(sign.HeaderAPIKey) != "key-id" || nonce == "" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		want := referenceMAC("/api/v1/margins?accountId=acc-1&asset=BTC" + nonce)
		if got := r.Header.Get(sign.HeaderSignature); got != want {
			t.Errorf("signature mismatch: got %s want %s", got, want)
		}
		io.WriteString(w, `{"margins":[{"accountId":"acc-1","asset":"BTC","marketValue":"0.001"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, testSigner(t), zap.NewNop())
	margins, err := c.Margins(context.Background(), "acc-1", "BTC")
	if err != nil {
		t.Fatalf("margins: %v", err)
	}
	if len(margins) != 1 || margins[0].Asset != "BTC" {
		t.Fatalf("unexpected margins: %+v", margins)
	}
}

func TestPlaceOrderSignsExactBodyBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		nonce := r.Header.Get(sign.HeaderNonce)
		want := referenceMAC("/api/v1/order" + string(body) + nonce)
		if got := r.Header.Get(sign.HeaderSignature); got != want {
			t.Errorf("signature does not cover the body: got %s want %s", got, want)
		}
		io.WriteString(w, `{"response":{"orderId":"o-new"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, testSigner(t), zap.NewNop())
	resp, err := c.PlaceOrder(context.Background(), itdx.NewOrder{
		AccountID:     "acc-1",
		Symbol:        "BTC-PERP",
		OrderSide:     itdx.SideBid,
		OrderType:     itdx.TypeLimit,
		OrderQuantity: "50",
		LimitPrice:    "49975",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if string(resp) != `{"orderId":"o-new"}` {
		t.Fatalf("unexpected response payload: %s", resp)
	}
}

func TestCancelOrderIssuesDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("orderId") != "o-1" {
			t.Errorf("missing orderId query: %s", r.URL.RawQuery)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, testSigner(t), zap.NewNop())
	if err := c.CancelOrder(context.Background(), "o-1"); err != nil {
		t.Fatalf("cancel order: %v", err)
	}
}

func TestCancelAllTargetsAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/order/all" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("accountId") != "acc-1" {
			t.Errorf("missing accountId query: %s", r.URL.RawQuery)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, testSigner(t), zap.NewNop())
	if err := c.CancelAll(context.Background(), "acc-1"); err != nil {
		t.Fatalf("cancel all: %v", err)
	}
}

func TestNon2xxBecomesRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"insufficient margin"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, testSigner(t), zap.NewNop())
	_, err := c.PlaceOrder(context.Background(), itdx.NewOrder{AccountID: "acc-1"})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Status != http.StatusBadRequest || reqErr.Endpoint != "/api/v1/order" {
		t.Fatalf("unexpected error detail: %+v", reqErr)
	}
	if reqErr.Body != `{"error":"insufficient margin"}` {
		t.Fatalf("unexpected body: %s", reqErr.Body)
	}
}

func TestPrivateCallWithoutSignerFails(t *testing.T) {
	c := New("http://127.0.0.1:0", time.Second, nil, zap.NewNop())
	if _, err := c.Accounts(context.Background()); err == nil {
		t.Fatalf("expected error for unsigned private call")
	}
}
