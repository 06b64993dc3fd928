// Package partition splits the division's input space into cells, one per
// reciprocal table entry and operand ordering, and runs the external
// prover over every cell.
//
// A Driver has two modes. Search asks Gappa for the error interval of
// each cell and reports the most negative lower bound. Certify asks Gappa
// to prove a given bound for each cell, has it emit a Coq proof script,
// and checks that script with coqc.
package partition
