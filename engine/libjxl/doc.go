// Package libjxl registers the "libjxl" engine backend, a cgo binding of the
// reference JxlDecoder API.
//
// The backend is compiled only with the libjxl build tag and cgo enabled:
//
//	go build -tags libjxl ./...
//
// It needs libjxl and libjxl_threads discoverable through pkg-config.
// Import the package for its side effect:
//
//	import _ "github.com/justapithecus/jxlframe/engine/libjxl"
//
// Without the tag the package is empty and engine.Open("libjxl", ...)
// reports engine.ErrUnknownBackend.
package libjxl

// Name is the backend name this package registers.
const Name = "libjxl"
