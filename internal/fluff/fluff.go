// Package fluff implements the payload transform kernel: expanding 4+4-bit
// complex samples to 8+8-bit and reordering them from time-major to
// frequency-major, the archetype CPU-bound compute stage bound to a ring.
package fluff

import (
	"fmt"

	hashpipe "github.com/hashpipe/hashpipe-go"
)

// wordBytes is the width of one (m,f,t,c) unit: eight packed complex
// samples, one per antenna input.
const wordBytes = 8

// Dims describes one block's sample geometry: Nm mcounts, Nf F-engines,
// Nt times per packet, Nc channels per packet.
type Dims struct {
	Nm int
	Nf int
	Nt int
	Nc int
}

// InputSize is the byte length Expand expects to read from an input block
// with these dimensions.
func (d Dims) InputSize() int {
	return d.Nm * d.Nf * d.Nt * d.Nc * wordBytes
}

// OutputSize is the byte length Expand writes to an output block: twice
// InputSize, since every complex sample becomes two full bytes.
func (d Dims) OutputSize() int {
	return d.InputSize() * 2
}

func idxIn(d Dims, m, f, t, c int) int {
	return c + d.Nc*(t+d.Nt*(f+d.Nf*m))
}

func idxOutReal(d Dims, m, f, t, c int) int {
	return f + 2*d.Nf*(c+d.Nc*(t+d.Nt*m))
}

func idxOutImag(d Dims, m, f, t, c int) int {
	return (f + d.Nf) + 2*d.Nf*(c+d.Nc*(t+d.Nt*m))
}

// Expand performs the 4-bit to 8-bit nibble expansion and the
// time-major-to-frequency-major dimensional reorder described by the input
// and output index formulas. Each input byte packs a real nibble (high) and
// an imaginary nibble (low); each becomes its own output byte, placed in the
// high nibble of the output byte with the low nibble reading zero (the
// imaginary nibble is shifted left by 4 to get there).
func Expand(dims Dims, in, out []byte) error {
	if len(in) < dims.InputSize() {
		return hashpipe.NewError("fluff", "Expand", hashpipe.ErrKindParameter,
			fmt.Sprintf("input too short: have %d bytes, need %d", len(in), dims.InputSize()))
	}
	if len(out) < dims.OutputSize() {
		return hashpipe.NewError("fluff", "Expand", hashpipe.ErrKindParameter,
			fmt.Sprintf("output too short: have %d bytes, need %d", len(out), dims.OutputSize()))
	}

	for m := 0; m < dims.Nm; m++ {
		for f := 0; f < dims.Nf; f++ {
			for t := 0; t < dims.Nt; t++ {
				for c := 0; c < dims.Nc; c++ {
					inOff := idxIn(dims, m, f, t, c) * wordBytes
					realOff := idxOutReal(dims, m, f, t, c) * wordBytes
					imagOff := idxOutImag(dims, m, f, t, c) * wordBytes

					for b := 0; b < wordBytes; b++ {
						raw := in[inOff+b]
						out[realOff+b] = raw & 0xF0
						out[imagOff+b] = (raw << 4) & 0xF0
					}
				}
			}
		}
	}
	return nil
}

// CopyHeader copies an input block's header unchanged into an output
// block's header, performed once per block before Expand runs.
func CopyHeader(dst, src []byte) {
	copy(dst, src)
}
