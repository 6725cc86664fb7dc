package ml

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestForecastRequestAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ml/forecast" {
			t.Errorf("path = %s, want /ml/forecast", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sku_id") != "Cement" || q.Get("horizon") != "7" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sku_id":"Cement","start_date":"2025-08-20","horizon":7,"forecast":[4,5,6,4,5,6,4]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	fc, err := client.Forecast(context.Background(), "Cement", 7)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if fc.SkuID != "Cement" || fc.Horizon != 7 || len(fc.Forecast) != 7 {
		t.Errorf("unexpected response: %+v", fc)
	}
}

func TestReorderRequestAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("sku_id") != "Steel" || q.Get("lead_time_days") != "10" || q.Get("z") != "1.65" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sku_id":"Steel","lead_time_days":10,"safety_stock":12.5,"reorder_point":62.5,"suggested_order":80}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	ro, err := client.Reorder(context.Background(), "Steel", 10, 1.65)
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if ro.ReorderPoint != 62.5 || ro.SuggestedOrder != 80 {
		t.Errorf("unexpected response: %+v", ro)
	}
}

func TestClientErrorOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"unknown sku"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	if _, err := client.Forecast(context.Background(), "Granite", 7); err == nil {
		t.Fatal("expected error on 422 response")
	}
}

func TestClientErrorWhenUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	if _, err := client.Reorder(context.Background(), "Cement", 7, 1.65); err == nil {
		t.Fatal("expected error when service is unreachable")
	}
}

func TestNormalizeSKU(t *testing.T) {
	cases := map[string]string{
		"cement":   "Cement",
		"  STEEL ": "Steel",
		"Bricks":   "Bricks",
		"Sand":     "Sand", // untrained label passes through
	}
	for in, want := range cases {
		if got := NormalizeSKU(in); got != want {
			t.Errorf("NormalizeSKU(%q) = %q, want %q", in, got, want)
		}
	}
}
