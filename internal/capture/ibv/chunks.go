package ibv

import (
	"strconv"
	"strings"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/constants"
)

// ChunkSpec is one entry in a ring's chunk table: a fixed-size region of a
// packet's payload, laid out at a 64-byte-aligned offset inside a receive
// slot so that scatter-gather descriptors can address it independently.
type ChunkSpec struct {
	Size   int
	Offset int
}

func alignUp(n, align int) int {
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}

// ParseChunkSizes parses a comma-separated IBVPKTSZ value ("42,96,1024")
// into a chunk table, rounding every chunk up to constants.ChunkAlignment
// and accumulating offsets: "42,96,1024" -> sizes (42,96,1024), offsets
// (0,64,192), total slot size 1216.
func ParseChunkSizes(csv string) ([]ChunkSpec, error) {
	fields := strings.Split(csv, ",")
	specs := make([]ChunkSpec, 0, len(fields))
	offset := 0
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, hashpipe.WrapError("ibv", "ParseChunkSizes", hashpipe.ErrKindParameter, err)
		}
		if n <= 0 {
			return nil, hashpipe.NewError("ibv", "ParseChunkSizes", hashpipe.ErrKindParameter, "chunk size must be positive")
		}
		specs = append(specs, ChunkSpec{Size: n, Offset: offset})
		offset += alignUp(n, constants.ChunkAlignment)
	}
	if len(specs) == 0 {
		return nil, hashpipe.NewError("ibv", "ParseChunkSizes", hashpipe.ErrKindParameter, "no chunk sizes given")
	}
	return specs, nil
}

// SlotSize returns the total aligned size a receive slot needs to hold
// every chunk in the table.
func SlotSize(specs []ChunkSpec) int {
	total := 0
	for _, s := range specs {
		total = s.Offset + alignUp(s.Size, constants.ChunkAlignment)
	}
	return total
}
