// Command hashpipe-clean-shmem clears (or, with -d, deletes) an instance's
// status buffer and deletes every one of its ring databufs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/hashpipe/hashpipe-go/internal/databuf"
	"github.com/hashpipe/hashpipe-go/internal/status"
)

// maxDatabufID bounds the scan for databufs to clean up, matching the
// original cleanup tool's fixed 1..20 range of ring indices.
const maxDatabufID = 20

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := pflag.NewFlagSet("hashpipe-clean-shmem", pflag.ContinueOnError)
	instance := fs.IntP("instance", "I", 0, "instance id")
	del := fs.BoolP("delete", "d", false, "delete the status buffer instead of just clearing it")
	if err := fs.Parse(argv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	exitCode := 0

	buf, err := status.Attach(*instance, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "status attach:", err)
		exitCode = 1
	} else if *del {
		if err := buf.Destroy(); err != nil {
			fmt.Fprintln(os.Stderr, "status destroy:", err)
			exitCode = 1
		} else {
			fmt.Println("deleted status shared memory and semaphore")
		}
	} else {
		if err := buf.Clear(); err != nil {
			fmt.Fprintln(os.Stderr, "status clear:", err)
			exitCode = 1
		} else {
			fmt.Println("cleared status shared memory")
			buf.Detach()
		}
	}

	for id := 1; id <= maxDatabufID; id++ {
		ring, err := databuf.Attach(*instance, id)
		if err != nil {
			continue
		}
		if err := ring.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "databuf %d destroy: %v\n", id, err)
			exitCode = 1
			continue
		}
		fmt.Printf("deleted databuf %d\n", id)
	}

	return exitCode
}
