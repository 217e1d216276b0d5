package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/internal/config"
)

var replayPolicy string

func init() {
	cmd := newReplayCmd()
	cmd.Flags().StringVar(&replayPolicy, "policy", "shared", "Concurrency policy: shared or local")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script>",
		Short: "Replay an allocation script",
		Long: `The replay command runs a script of allocator operations against a
fresh heap, one operation per line:

  alloc NAME SIZE   allocate SIZE bytes and call the result NAME
  free NAME         release the allocation called NAME
  dump              print the free list
  verify            check heap invariants
  stats             print allocator counters

Blank lines and lines starting with # are ignored. Use - to read stdin.

Example:
  heapctl replay fragmentation.txt
  heapctl replay --policy local - < script.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := config.ParsePolicy(replayPolicy)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open script: %w", err)
				}
				defer f.Close()
				r = f
			}

			ops, err := parseScript(r)
			if err != nil {
				return err
			}

			h, err := alloc.New(cfg.Alloc())
			if err != nil {
				return err
			}
			defer h.Close()
			return runScript(h, policy, ops, cmd.OutOrStdout())
		},
	}
}

// scriptOp is one parsed script line.
type scriptOp struct {
	line int
	verb string
	name string
	size int
}

// parseScript reads a whole script, rejecting it at the first malformed line.
func parseScript(r io.Reader) ([]scriptOp, error) {
	var ops []scriptOp
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		op := scriptOp{line: n, verb: f[0]}

		switch op.verb {
		case "alloc":
			if len(f) != 3 {
				return nil, fmt.Errorf("line %d: usage: alloc NAME SIZE", n)
			}
			size, err := strconv.Atoi(f[2])
			if err != nil || size < 0 {
				return nil, fmt.Errorf("line %d: invalid size %q", n, f[2])
			}
			op.name, op.size = f[1], size
		case "free":
			if len(f) != 2 {
				return nil, fmt.Errorf("line %d: usage: free NAME", n)
			}
			op.name = f[1]
		case "dump", "verify", "stats":
			if len(f) != 1 {
				return nil, fmt.Errorf("line %d: %s takes no arguments", n, op.verb)
			}
		default:
			return nil, fmt.Errorf("line %d: unknown operation %q", n, op.verb)
		}
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ops, nil
}

// runScript executes ops on h under the given policy, writing a line per
// operation to w.
func runScript(h *alloc.Heap, policy alloc.Policy, ops []scriptOp, w io.Writer) error {
	var (
		a     byteAllocator = h
		local *alloc.Local
	)
	if policy == alloc.PolicyLocal {
		local = h.NewLocal()
		a = local
	}
	live := map[string][]byte{}

	for _, op := range ops {
		switch op.verb {
		case "alloc":
			if _, ok := live[op.name]; ok {
				return fmt.Errorf("line %d: %s is already allocated", op.line, op.name)
			}
			b := a.AllocateBytes(op.size)
			if b == nil {
				printInfo(w, "alloc %s %d -> nil\n", op.name, op.size)
				continue
			}
			live[op.name] = b
			blk := h.BlockOf(sliceStart(b))
			printInfo(w, "alloc %s %d -> off=0x%08X cap=%d\n", op.name, op.size, blk.Offset, blk.Size)

		case "free":
			b, ok := live[op.name]
			if !ok {
				return fmt.Errorf("line %d: %s is not allocated", op.line, op.name)
			}
			delete(live, op.name)
			a.ReleaseBytes(b)
			printInfo(w, "free %s\n", op.name)

		case "dump":
			var err error
			if local != nil {
				err = local.Dump(w)
			} else {
				err = h.Dump(w)
			}
			if err != nil {
				return err
			}

		case "verify":
			if err := h.Verify(); err != nil {
				return fmt.Errorf("line %d: %w", op.line, err)
			}
			printInfo(w, "verify ok\n")

		case "stats":
			s := h.Stats()
			if local != nil {
				s = local.Stats()
			}
			if jsonOut {
				if err := printJSON(w, s); err != nil {
					return err
				}
				continue
			}
			printInfo(w, "stats allocs=%d releases=%d live=%d/%dB free=%d/%dB heap=%dB\n",
				s.Allocations, s.Releases, s.LiveBlocks, s.LiveBytes, s.FreeBlocks, s.FreeBytes, s.HeapBytes)
		}
	}
	return nil
}
