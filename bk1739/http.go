package bk1739

import (
	"github.com/maglab/coilctl/server"
)

// HTTPSupply is an HTTP wrapper around a supply.
type HTTPSupply struct {
	server.RouteTable

	s Controller
}

// NewHTTPWrapper returns an HTTP wrapper exposing the supply's command
// surface: id, mode, voltage, current.
func NewHTTPWrapper(s Controller) HTTPSupply {
	rt := server.RouteTable{}
	h := HTTPSupply{RouteTable: rt, s: s}
	rt["id"] = server.GetString(s.ID)
	rt["mode"] = server.GetString(h.modeString)
	rt["voltage"] = server.FloatRW(s.GetVoltage, s.SetVoltage)
	rt["current"] = server.FloatRW(s.GetCurrent, s.SetCurrent)
	return h
}

// RT satisfies server.HTTPer.
func (h HTTPSupply) RT() server.RouteTable {
	return h.RouteTable
}

func (h HTTPSupply) modeString() (string, error) {
	m, err := h.s.Mode()
	if err != nil {
		return "", err
	}
	return m.String(), nil
}
