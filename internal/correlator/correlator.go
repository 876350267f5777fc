// Package correlator provides the compute-worker side of the pipeline's
// cross-correlation stage. The real GPU correlator is an opaque external
// collaborator this repository never claims to replace; Correlator is the
// seam a compute worker calls through, and ReferenceCorrelator is a
// software stand-in useful for tests and CPU-only demonstration runs.
package correlator

import (
	"fmt"

	hashpipe "github.com/hashpipe/hashpipe-go"
)

// Correlator integrates nAnt antennas' worth of nTime-sample,
// nChan-channel complex voltage data into a cross-correlation matrix: one
// nAnt*nAnt*nChan-length complex array, one value per (antenna-pair,
// channel).
type Correlator interface {
	Integrate(input []complex64, nAnt, nChan, nTime int) ([]complex64, error)
}

// ReferenceCorrelator computes the direct O(n^2) cross-correlation per
// channel: for every pair of antennas (i, j) and every channel, it sums
// input[i,chan,t] * conj(input[j,chan,t]) over all t. Grounded in the
// invocation shape of the original GPU correlator call
// (xgpuCudaXengine(ctx, input_ptr, output_ptr)) without claiming any of
// its hardware acceleration.
type ReferenceCorrelator struct{}

// Integrate implements Correlator. input is laid out [antenna][channel][time].
func (ReferenceCorrelator) Integrate(input []complex64, nAnt, nChan, nTime int) ([]complex64, error) {
	if nAnt <= 0 || nChan <= 0 || nTime <= 0 {
		return nil, hashpipe.NewError("correlator", "Integrate", hashpipe.ErrKindParameter, "nAnt, nChan, nTime must all be positive")
	}
	want := nAnt * nChan * nTime
	if len(input) != want {
		return nil, hashpipe.NewError("correlator", "Integrate", hashpipe.ErrKindParameter,
			fmt.Sprintf("input has %d samples, want %d (nAnt*nChan*nTime)", len(input), want))
	}

	out := make([]complex64, nAnt*nAnt*nChan)
	idxIn := func(ant, chn, t int) int { return t + nTime*(chn+nChan*ant) }
	idxOut := func(i, j, chn int) int { return chn + nChan*(j+nAnt*i) }

	for i := 0; i < nAnt; i++ {
		for j := 0; j < nAnt; j++ {
			for c := 0; c < nChan; c++ {
				var sum complex64
				for t := 0; t < nTime; t++ {
					a := input[idxIn(i, c, t)]
					b := input[idxIn(j, c, t)]
					sum += a * complex(real(b), -imag(b))
				}
				out[idxOut(i, j, c)] = sum
			}
		}
	}
	return out, nil
}
