package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maglab/coilctl/server"

	"github.com/go-chi/chi"
)

func TestFloatRWDispatch(t *testing.T) {
	stored := 0.0
	h := server.FloatRW(
		func() (float64, error) { return stored, nil },
		func(f float64) error { stored = f; return nil },
	)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/field", strings.NewReader(`{"f64": 0.05}`)))
	if w.Code != http.StatusOK {
		t.Fatal("POST rejected:", w.Code)
	}
	if stored != 0.05 {
		t.Errorf("setter received %v", stored)
	}

	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/field", nil))
	if w.Code != http.StatusOK {
		t.Fatal("GET rejected:", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "0.05") {
		t.Errorf("GET body %q does not carry the value", body)
	}

	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodDelete, "/field", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE answered %d, expected 405", w.Code)
	}
}

func TestRouteTableBind(t *testing.T) {
	rt := server.RouteTable{
		"field": server.GetFloat(func() (float64, error) { return 1.5, nil }),
	}
	r := chi.NewRouter()
	rt.Bind(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/field", nil))
	if w.Code != http.StatusOK {
		t.Fatal("bound route did not answer:", w.Code)
	}
	eps := rt.Endpoints()
	if len(eps) != 1 || eps[0] != "field" {
		t.Errorf("endpoints %v", eps)
	}
}
