// Command hashpipe-check-databuf attaches to (or creates) a ring databuf
// and prints its geometry and per-block fill status.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/hashpipe/hashpipe-go/internal/databuf"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := pflag.NewFlagSet("hashpipe-check-databuf", pflag.ContinueOnError)
	instance := fs.IntP("instance", "I", 0, "instance id")
	dbID := fs.IntP("databuf", "d", 1, "databuf id")
	create := fs.BoolP("create", "c", false, "create the databuf if absent")
	blockMiB := fs.IntP("blksize", "s", 32, "block size in MiB, with -c")
	nblock := fs.IntP("nblock", "n", 24, "number of blocks, with -c")
	hdrsize := fs.IntP("hdrsize", "H", 184, "header size in bytes, with -c")
	quiet := fs.BoolP("quiet", "q", false, "quiet mode")
	if err := fs.Parse(argv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	var ring *databuf.Ring
	var err error
	if *create {
		ring, err = databuf.Create(*instance, *dbID, uintptr(*hdrsize), uintptr(*blockMiB)<<20, *nblock)
	} else {
		ring, err = databuf.Attach(*instance, *dbID)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "databuf:", err)
		return 1
	}
	defer ring.Detach()

	if *quiet {
		return 0
	}

	fmt.Printf("instance=%d databuf=%d nblock=%d blocksize=%d headersize=%d\n",
		*instance, *dbID, ring.NBlock(), ring.BlockSize(), ring.HeaderSize())

	mask, err := ring.TotalMask()
	if err != nil {
		fmt.Fprintln(os.Stderr, "status:", err)
		return 1
	}
	for b := 0; b < ring.NBlock() && b < 64; b++ {
		state := "free"
		if mask&(1<<uint(b)) != 0 {
			state = "filled"
		}
		fmt.Printf("  block %2d: %s\n", b, state)
	}
	return 0
}
