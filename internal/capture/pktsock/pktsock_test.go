//go:build linux

package pktsock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRejectsFrameCountNotMultipleOfBlockCount(t *testing.T) {
	_, err := Open("lo", RingTypeV2, 2048, 10, 3)
	require.Error(t, err)
}

func TestOpenRejectsUnalignedBlockSize(t *testing.T) {
	// frameSize(100) * framesPerBlock(1) = 100, not a page-size multiple.
	_, err := Open("lo", RingTypeV2, 100, 4, 4)
	require.Error(t, err)
}

func TestOpenRejectsZeroBlockCount(t *testing.T) {
	_, err := Open("lo", RingTypeV2, 2048, 4, 0)
	require.Error(t, err)
}
