package auth

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"
)

func TestFromHTTP_BuffersBody(t *testing.T) {
	body := []byte(`{"amount":1000}`)
	r := httptest.NewRequest("POST", "/v1/payments", bytes.NewReader(body))

	req, err := FromHTTP(r)
	if err != nil {
		t.Fatalf("FromHTTP() error = %v", err)
	}
	if !bytes.Equal(req.Body, body) {
		t.Errorf("Buffered body = %q, want %q", req.Body, body)
	}
	if req.Method != "POST" || req.Path != "/v1/payments" {
		t.Errorf("Request = %s %s, want POST /v1/payments", req.Method, req.Path)
	}

	// The original request must remain readable downstream
	remaining, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("Re-reading request body: %v", err)
	}
	if !bytes.Equal(remaining, body) {
		t.Errorf("Downstream body = %q, want %q", remaining, body)
	}
}

func TestFromHTTP_NoBody(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/balance", nil)
	req, err := FromHTTP(r)
	if err != nil {
		t.Fatalf("FromHTTP() error = %v", err)
	}
	if len(req.Body) != 0 {
		t.Errorf("Body = %q, want empty", req.Body)
	}
}
