// Package server contains the route table and JSON envelope shared by
// the HTTP wrappers around devices.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
)

// HTTPer is an object which has a route table to expose over HTTP.
type HTTPer interface {
	RT() RouteTable
}

// RouteTable maps URL endpoints to their handlers.  Handlers dispatch
// on method internally, so one endpoint covers get and set.
type RouteTable map[string]http.HandlerFunc

// Endpoints lists the endpoints in a RouteTable (the keys).
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, k)
	}
	return routes
}

// Bind attaches every route in the table to r.
func (rt RouteTable) Bind(r chi.Router) {
	for route, handler := range rt {
		r.Handle("/"+route, handler)
	}
}

// FloatT is a float64 behind a json field
type FloatT struct {
	F64 float64 `json:"f64"`
}

// StrT is a string behind a json field
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a bool behind a json field
type BoolT struct {
	Bool bool `json:"bool"`
}

// jsonOK writes v to w as JSON with a 200.
func jsonOK(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetFloat adapts a float-getting function to a HandlerFunc replying
// {"f64": value}.
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		jsonOK(w, FloatT{F64: f})
	}
}

// SetFloat adapts a float-setting function to a HandlerFunc consuming
// {"f64": value}.
func SetFloat(fcn func(float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := FloatT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := fcn(f.F64); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetString adapts a string-getting function to a HandlerFunc replying
// {"str": value}.
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		jsonOK(w, StrT{Str: s})
	}
}

// FloatRW dispatches GET to a getter and POST to a setter on one
// endpoint, replying 405 to anything else.
func FloatRW(get func() (float64, error), set func(float64) error) http.HandlerFunc {
	getH := GetFloat(get)
	setH := SetFloat(set)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getH(w, r)
		case http.MethodPost:
			setH(w, r)
		default:
			http.Error(w, "method must be GET or POST", http.StatusMethodNotAllowed)
		}
	}
}
