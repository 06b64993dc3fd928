package partition

import (
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/recip"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/types"
)

// Cells returns every partition cell in run order: by table index, and
// for each index the b-bigger cell first.
func Cells() []types.Cell {
	cells := make([]types.Cell, 0, types.NumCells)
	for topbits := recip.MinTopBits; topbits <= recip.MaxTopBits; topbits++ {
		for _, aBigger := range []bool{false, true} {
			cells = append(cells, types.Cell{TopBits: topbits, ABigger: aBigger})
		}
	}
	return cells
}
