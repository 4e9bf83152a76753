package coil

import (
	"encoding/json"
	"net/http"

	"github.com/maglab/coilctl/server"
)

// HTTPCoil is an HTTP wrapper around a single field actuator.
type HTTPCoil struct {
	server.RouteTable

	c FieldActuator
}

// NewHTTPWrapper returns an HTTP wrapper exposing field get/set on one
// actuator.
func NewHTTPWrapper(c FieldActuator) HTTPCoil {
	rt := server.RouteTable{}
	h := HTTPCoil{RouteTable: rt, c: c}
	rt["field"] = server.FloatRW(c.GetField, c.SetField)
	return h
}

// RT satisfies server.HTTPer.
func (h HTTPCoil) RT() server.RouteTable {
	return h.RouteTable
}

// HTTPTrimmedCoil is an HTTP wrapper around a trimmed coil pair.
// Setting the field replies with the deferred DAC write so the client
// can batch it with its other DAC traffic.
type HTTPTrimmedCoil struct {
	server.RouteTable

	tc *TrimmedCoil
}

// NewHTTPTrimmedCoil returns an HTTP wrapper exposing net field control
// and the pending trim write.
func NewHTTPTrimmedCoil(tc *TrimmedCoil) HTTPTrimmedCoil {
	rt := server.RouteTable{}
	h := HTTPTrimmedCoil{RouteTable: rt, tc: tc}
	rt["field"] = h.Field
	rt["net-field"] = server.GetFloat(func() (float64, error) { return tc.NetField(), nil })
	rt["trim-pending"] = h.TrimPending
	return h
}

// RT satisfies server.HTTPer.
func (h HTTPTrimmedCoil) RT() server.RouteTable {
	return h.RouteTable
}

// Field reads the true field on GET; on POST it commands a new net
// field and replies with the TrimUpdate the client must forward to the
// DAC writer.
func (h HTTPTrimmedCoil) Field(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		server.GetFloat(h.tc.GetField)(w, r)
	case http.MethodPost:
		f := server.FloatT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		upd, err := h.tc.SetField(f.F64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(upd)
	default:
		http.Error(w, "method must be GET or POST", http.StatusMethodNotAllowed)
	}
}

// TrimPending replies with the trim winding's deferred DAC write.
func (h HTTPTrimmedCoil) TrimPending(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.tc.Pending())
}
