// Command hashpipe-dump-databuf prints a ring databuf's status, or dumps
// one block's raw payload bytes to stdout.
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
	fs := pflag.NewFlagSet("hashpipe-dump-databuf", pflag.ContinueOnError)
	instance := fs.IntP("instance", "I", 0, "instance id")
	dbID := fs.IntP("databuf", "d", 1, "databuf id")
	block := fs.IntP("block", "b", -1, "block number to dump; omit to print status only")
	skip := fs.IntP("skip", "s", 0, "number of bytes to skip")
	num := fs.IntP("bytes", "n", 0, "number of bytes to dump (0 = all remaining)")
	if err := fs.Parse(argv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ring, err := databuf.Attach(*instance, *dbID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "attach:", err)
		return 1
	}
	defer ring.Detach()

	if *block < 0 {
		fmt.Printf("instance=%d databuf=%d nblock=%d blocksize=%d headersize=%d\n",
			*instance, *dbID, ring.NBlock(), ring.BlockSize(), ring.HeaderSize())
		return 0
	}
	if *block >= ring.NBlock() {
		fmt.Fprintf(os.Stderr, "block %d out of range (nblock=%d)\n", *block, ring.NBlock())
		return 1
	}

	payload := ring.PayloadBytes(*block)
	start := *skip
	if start > len(payload) {
		start = len(payload)
	}
	end := len(payload)
	if *num > 0 && start+*num < end {
		end = start + *num
	}
	os.Stdout.Write(payload[start:end])
	return 0
}
