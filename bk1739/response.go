package bk1739

import (
	"regexp"
	"strconv"
)

// numPat matches the numeric replies the supply produces, e.g. 012.3
// for 12.3 mA.  One or more digits, a point, at least one digit.
var numPat = regexp.MustCompile(`\d+\.\d`)

// ResponseKind discriminates the three reply shapes the supply produces.
type ResponseKind int

const (
	// RespEmpty means the command was acknowledged with no data
	RespEmpty ResponseKind = iota

	// RespNumeric means the reply carried a measurement
	RespNumeric

	// RespText means the reply carried text: a mode, an identity
	// string, or an error message
	RespText
)

// Response is a single decoded device reply.  Text holds the raw
// message for every non-empty response; Value is populated only when
// Kind is RespNumeric.
type Response struct {
	Kind  ResponseKind
	Value float64
	Text  string
}

// decodeResponse renders an extracted frame payload into a Response.
func decodeResponse(payload []byte) Response {
	if len(payload) == 0 {
		return Response{Kind: RespEmpty}
	}
	text := string(payload)
	if tok := numPat.FindString(text); tok != "" {
		v, err := strconv.ParseFloat(tok, 64)
		if err == nil {
			return Response{Kind: RespNumeric, Value: v, Text: text}
		}
	}
	return Response{Kind: RespText, Text: text}
}
