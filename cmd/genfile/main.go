// Command genfile writes a synthetic sorted (id, val) CSV stream,
// suitable as mkbst's --input. It stays deliberately minimal: no flags
// beyond N, a mode, and an optional output path.
package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: genfile N {seqint|randint|randf64} [-o PATH]")
		return 1
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || n < 0 {
		fmt.Fprintln(os.Stderr, "genfile: invalid N:", args[0])
		return 1
	}
	mode := args[1]

	out := os.Stdout
	for i := 2; i < len(args); i++ {
		if args[i] == "-o" && i+1 < len(args) {
			f, err := os.Create(args[i+1])
			if err != nil {
				fmt.Fprintln(os.Stderr, "genfile:", err)
				return 2
			}
			defer f.Close()
			out = f
			i++
		}
	}

	bw := bufio.NewWriter(out)
	w := csv.NewWriter(bw)
	w.Write([]string{"id", "val"})

	switch mode {
	case "seqint":
		for i := int64(0); i < n; i++ {
			w.Write([]string{strconv.FormatInt(i, 10), strconv.FormatInt(i, 10)})
		}
	case "randint":
		vals := make([]int64, n)
		for i := range vals {
			vals[i] = rand.Int63n(n * 10)
		}
		sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
		for i, v := range vals {
			w.Write([]string{strconv.FormatInt(int64(i), 10), strconv.FormatInt(v, 10)})
		}
	case "randf64":
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = rand.Float64() * float64(n)
		}
		sort.Float64s(vals)
		for i, v := range vals {
			w.Write([]string{strconv.FormatInt(int64(i), 10), strconv.FormatFloat(v, 'g', -1, 64)})
		}
	default:
		fmt.Fprintln(os.Stderr, "genfile: unknown mode", mode)
		return 1
	}

	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintln(os.Stderr, "genfile:", err)
		return 2
	}
	return writeFlush(bw)
}

func writeFlush(bw *bufio.Writer) int {
	if err := bw.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, "genfile:", err)
		return 2
	}
	return 0
}
