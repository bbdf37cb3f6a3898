// Package abi describes the thumbnail boundary exports and checks that a
// compiled guest module provides them.
//
// Each export is declared with WIT scalar types and lowered to core wasm
// value types for comparison with the module's function definitions:
//
//	allocate:   func(size: u32) -> u32
//	deallocate: func(ptr: u32, size: u32)
//	thumbnail:  func(ptr: u32, len: u32, width: u32, height: u32) -> u64
package abi
