package correlator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntegrateRejectsBadDims(t *testing.T) {
	c := ReferenceCorrelator{}
	_, err := c.Integrate(nil, 0, 1, 1)
	require.Error(t, err)
}

func TestIntegrateRejectsWrongLength(t *testing.T) {
	c := ReferenceCorrelator{}
	_, err := c.Integrate(make([]complex64, 3), 2, 2, 2)
	require.Error(t, err)
}

func TestIntegrateAutocorrelationIsRealNonNegative(t *testing.T) {
	c := ReferenceCorrelator{}
	nAnt, nChan, nTime := 2, 1, 4
	input := make([]complex64, nAnt*nChan*nTime)
	for i := range input {
		input[i] = complex(float32(i+1), float32(i%3))
	}

	out, err := c.Integrate(input, nAnt, nChan, nTime)
	require.NoError(t, err)
	require.Len(t, out, nAnt*nAnt*nChan)

	// autocorrelation (i == j) must be real (zero imaginary part) and
	// non-negative, since it's a sum of |x|^2 terms.
	for i := 0; i < nAnt; i++ {
		v := out[nChan*(i+nAnt*i)]
		require.InDelta(t, 0, imag(v), 1e-4)
		require.GreaterOrEqual(t, real(v), float32(0))
	}
}

func TestIntegrateCrossTermsAreConjugateSymmetric(t *testing.T) {
	c := ReferenceCorrelator{}
	nAnt, nChan, nTime := 2, 1, 4
	input := make([]complex64, nAnt*nChan*nTime)
	for i := range input {
		input[i] = complex(float32(i+1), float32(2*i+1))
	}

	out, err := c.Integrate(input, nAnt, nChan, nTime)
	require.NoError(t, err)

	vij := out[0*nChan*nAnt+1*nChan+0]
	vji := out[1*nChan*nAnt+0*nChan+0]
	require.InDelta(t, real(vij), real(vji), 1e-3)
	require.InDelta(t, imag(vij), -imag(vji), 1e-3)
}
