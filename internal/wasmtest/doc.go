// Package wasmtest assembles small core wasm modules for tests.
//
// Only the handful of sections and instructions needed to exercise the
// thumbnail ABI from a host are supported. Fixtures built on it live in
// fixtures.go.
package wasmtest
