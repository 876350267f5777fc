// Command hashpipe-check-status attaches to an instance's status buffer
// and lists, queries, sets, or clears its key/value pairs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/hashpipe/hashpipe-go/internal/status"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := pflag.NewFlagSet("hashpipe-check-status", pflag.ContinueOnError)
	instance := fs.IntP("instance", "I", 0, "instance id")
	query := fs.StringP("query", "Q", "", "query string value of KEY")
	setKey := fs.StringP("key", "k", "", "key to update or blank")
	setVal := fs.StringP("string", "s", "", "update key with string value")
	setInt := fs.Int64P("int", "i", 0, "update key with int value")
	hasInt := fs.Changed
	clear := fs.BoolP("clear", "C", false, "remove all key/value pairs")
	del := fs.BoolP("del", "D", false, "set KEY's value to an empty string (needs -k); the record itself is not removed")
	if err := fs.Parse(argv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	buf, err := status.Attach(*instance, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "attach:", err)
		return 1
	}
	defer buf.Detach()

	switch {
	case *clear:
		if err := buf.Clear(); err != nil {
			fmt.Fprintln(os.Stderr, "clear:", err)
			return 1
		}
		return 0
	case *del:
		if *setKey == "" {
			fmt.Fprintln(os.Stderr, "-D requires -k KEY")
			return 2
		}
		if err := buf.Put(*setKey, ""); err != nil {
			fmt.Fprintln(os.Stderr, "del:", err)
			return 1
		}
		return 0
	case *query != "":
		v, ok := buf.Get(*query)
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: not set\n", *query)
			return 1
		}
		fmt.Println(v)
		return 0
	case *setKey != "" && *setVal != "":
		if err := buf.Put(*setKey, *setVal); err != nil {
			fmt.Fprintln(os.Stderr, "set:", err)
			return 1
		}
		return 0
	case *setKey != "" && hasInt("int"):
		if err := buf.PutInt(*setKey, *setInt); err != nil {
			fmt.Fprintln(os.Stderr, "set:", err)
			return 1
		}
		return 0
	default:
		for _, k := range buf.Keys() {
			v, _ := buf.Get(k)
			fmt.Printf("%-8s = %s\n", k, v)
		}
		return 0
	}
}
