// Package gappa generates input files for the Gappa prover from the
// symbolic form of the division algorithm, names the files belonging to
// each partition cell, and parses Gappa's reports.
package gappa
