package supervisor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/constants"
)

// Config is the fully-parsed command line: an ordered worker chain plus the
// per-worker affinity/priority/options that preceded each worker name.
type Config struct {
	InstanceID int
	List       bool
	Help       bool
	Workers    []string          // in pipeline order
	Affinity   map[int]uint64    // worker index -> CPU mask
	Priority   map[int]int       // worker index -> nice value
	Options    map[string]string // -o KEY=VALUE (or bare KEY -> "")
}

// ParseArgs parses argv (normally os.Args[1:]) the way the original
// command line did: -I/-c/-m/-o flags can be interleaved with positional
// worker names in any order, and a -c/-m seen before a worker name applies
// to that worker. pflag's FlagSet alone discards interleaving order
// between flags and positionals (Args() just returns the positional
// leftovers, unordered relative to the flags), so this walks os.Args a
// second time after pflag has validated flag syntax, tracking which
// worker index is "current" as -c/-m/-o flags are seen, exactly as the
// original's single getopt_long loop did by applying -c/-m to whichever
// thread index was current when the flag was parsed.
func ParseArgs(argv []string) (*Config, error) {
	fs := pflag.NewFlagSet("hashpipe", pflag.ContinueOnError)
	fs.Usage = func() {}

	instance := fs.IntP("instance", "I", constants.DefaultInstanceID, "instance id (0-63)")
	list := fs.BoolP("list", "l", false, "list registered worker modules and exit")
	help := fs.BoolP("help", "h", false, "show usage and exit")
	cpuFlags := fs.StringArrayP("cpu", "c", nil, "CPU mask (hex) for the next worker")
	maskFlags := fs.StringArrayP("mask", "m", nil, "priority (nice value) for the next worker")
	optFlags := fs.StringArrayP("option", "o", nil, "KEY=VALUE status option")

	if err := fs.Parse(argv); err != nil {
		return nil, hashpipe.WrapError("supervisor", "ParseArgs", hashpipe.ErrKindParameter, err)
	}

	cfg := &Config{
		InstanceID: *instance,
		List:       *list,
		Help:       *help,
		Affinity:   map[int]uint64{},
		Priority:   map[int]int{},
		Options:    map[string]string{},
	}

	for _, kv := range *optFlags {
		k, v, _ := strings.Cut(kv, "=")
		cfg.Options[strings.TrimSpace(k)] = v
	}

	// Re-walk the raw argv to recover per-worker affinity/priority
	// ordering: a -c/-m immediately preceding a worker name in the
	// original argument list applies to that worker.
	var pendingCPU *uint64
	var pendingPrio *int
	i := 0
	for i < len(argv) {
		tok := argv[i]
		switch {
		case tok == "-c" || tok == "--cpu":
			if i+1 >= len(argv) {
				return nil, hashpipe.NewError("supervisor", "ParseArgs", hashpipe.ErrKindParameter, "-c requires a value")
			}
			mask, err := parseMask(argv[i+1])
			if err != nil {
				return nil, err
			}
			pendingCPU = &mask
			i += 2
			continue
		case strings.HasPrefix(tok, "--cpu="):
			mask, err := parseMask(strings.TrimPrefix(tok, "--cpu="))
			if err != nil {
				return nil, err
			}
			pendingCPU = &mask
			i++
			continue
		case tok == "-m" || tok == "--mask":
			if i+1 >= len(argv) {
				return nil, hashpipe.NewError("supervisor", "ParseArgs", hashpipe.ErrKindParameter, "-m requires a value")
			}
			prio, err := strconv.Atoi(argv[i+1])
			if err != nil {
				return nil, hashpipe.WrapError("supervisor", "ParseArgs", hashpipe.ErrKindParameter, err)
			}
			pendingPrio = &prio
			i += 2
			continue
		case strings.HasPrefix(tok, "--mask="):
			prio, err := strconv.Atoi(strings.TrimPrefix(tok, "--mask="))
			if err != nil {
				return nil, hashpipe.WrapError("supervisor", "ParseArgs", hashpipe.ErrKindParameter, err)
			}
			pendingPrio = &prio
			i++
			continue
		case strings.HasPrefix(tok, "-"):
			// Any other recognized flag: skip its value if it takes one.
			if tok == "-I" || tok == "--instance" || tok == "-o" || tok == "--option" {
				i += 2
				continue
			}
			i++
			continue
		default:
			idx := len(cfg.Workers)
			cfg.Workers = append(cfg.Workers, tok)
			if pendingCPU != nil {
				cfg.Affinity[idx] = *pendingCPU
				pendingCPU = nil
			}
			if pendingPrio != nil {
				cfg.Priority[idx] = *pendingPrio
				pendingPrio = nil
			}
			i++
		}
	}

	_ = cpuFlags
	_ = maskFlags

	return cfg, nil
}

func parseMask(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, hashpipe.WrapError("supervisor", "parseMask", hashpipe.ErrKindParameter, fmt.Errorf("invalid cpu mask %q: %w", s, err))
	}
	return v, nil
}
