// Package recip computes the 8-bit reciprocal lookup table that seeds the
// division routine's Newton-Raphson iterations. Entry is the single
// definition of the table; everything else calls it.
package recip

import (
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	// MinTopBits and MaxTopBits bound the top byte of a normalised
	// 64-bit mantissa.
	MinTopBits = 0x80
	MaxTopBits = 0xFF

	// Size is the number of table entries.
	Size = MaxTopBits - MinTopBits + 1

	bytesPerLine = 8
)

// Entry returns the table entry for the denominators whose top 8 bits
// (leading 1 included) are topbits: the reciprocal of the midpoint of that
// range, scaled into [0x80,0x100) and rounded half up.
//
// Entry panics if topbits is outside [0x80,0x100).
func Entry(topbits int) int {
	if topbits < MinTopBits || topbits > MaxTopBits {
		panic(fmt.Sprintf("recip: top bits 0x%X out of range", topbits))
	}
	q := big.NewRat(0x10000, int64(2*topbits+1))
	q.Add(q, big.NewRat(1, 2))
	return int(new(big.Int).Div(q.Num(), q.Denom()).Int64())
}

// Table returns all entries, indexed by topbits-0x80.
func Table() []int {
	table := make([]int, 0, Size)
	for topbits := MinTopBits; topbits <= MaxTopBits; topbits++ {
		table = append(table, Entry(topbits))
	}
	return table
}

// WriteTable writes the table as assembler ".byte" directives, eight
// entries per line, ready to paste into ddiv.S.
func WriteTable(w io.Writer) error {
	table := Table()
	for i := 0; i < len(table); i += bytesPerLine {
		items := make([]string, 0, bytesPerLine)
		for _, v := range table[i : i+bytesPerLine] {
			items = append(items, fmt.Sprintf("0x%02X", v))
		}
		if _, err := fmt.Fprintf(w, "  .byte %s\n", strings.Join(items, ",")); err != nil {
			return err
		}
	}
	return nil
}
