// Package exact implements the numeric contract with arbitrary-precision
// fractions, so the division algorithm can be run on concrete mantissas
// and its intermediate values compared with the hardware routine's trace.
package exact
