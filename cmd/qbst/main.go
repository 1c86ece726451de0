// Command qbst queries a bstree file built by mkbst: info, get, nn,
// knn, range, and stats subcommands, each writing CSV (or JSON for
// info/stats) to stdout.
package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/xDarkicex/bstreego"
	"github.com/xDarkicex/bstreego/internal/entry"
	"github.com/xDarkicex/bstreego/internal/obs"
	"github.com/xDarkicex/bstreego/internal/walk"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: qbst FILE {info|get|nn|knn|range|stats} ...")
		return 1
	}
	path, sub, rest := args[0], args[1], args[2:]

	tree, err := bstreego.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "qbst:", err)
		return exitCodeFor(err)
	}
	defer tree.Close()

	switch sub {
	case "info":
		return cmdInfo(tree)
	case "get":
		return cmdGet(tree, rest)
	case "nn":
		return cmdNN(tree, rest)
	case "knn":
		return cmdKNN(tree, rest)
	case "range":
		return cmdRange(tree, rest)
	case "stats":
		return cmdStats(tree)
	default:
		fmt.Fprintln(os.Stderr, "qbst: unknown subcommand", sub)
		return 1
	}
}

func cmdInfo(t *bstreego.Tree) int {
	s := t.Schema()
	info := map[string]any{
		"n":          t.N(),
		"id_type":    s.Id.String(),
		"val_type":   s.Val.String(),
		"entry_size": humanize.Bytes(uint64(s.EntrySize())),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		log.Println("qbst:", err)
		return 2
	}
	return 0
}

func cmdGet(t *bstreego.Tree, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: qbst FILE get value V | qbst FILE get list PATH")
		return 1
	}
	w := csv.NewWriter(os.Stdout)
	w.Write([]string{"id", "val"})
	emit := func(vs string) int {
		v, err := parseQueryVal(t.Schema().Val, vs)
		if err != nil {
			fmt.Fprintln(os.Stderr, "qbst:", err)
			return 1
		}
		id, val, found, err := t.Find(v)
		if err != nil {
			fmt.Fprintln(os.Stderr, "qbst:", err)
			return exitCodeFor(err)
		}
		if found {
			w.Write([]string{walk.FormatField(id), walk.FormatField(val)})
		}
		return 0
	}
	switch args[0] {
	case "value":
		if rc := emit(args[1]); rc != 0 {
			return rc
		}
	case "list":
		rc, err := forEachLine(args[1], emit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "qbst:", err)
			return 2
		}
		if rc != 0 {
			return rc
		}
	default:
		fmt.Fprintln(os.Stderr, "qbst: get requires 'value' or 'list'")
		return 1
	}
	w.Flush()
	return 0
}

func cmdNN(t *bstreego.Tree, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: qbst FILE nn value V | qbst FILE nn list PATH")
		return 1
	}
	w := csv.NewWriter(os.Stdout)
	w.Write([]string{"distance", "id", "val"})
	emit := func(vs string) int {
		v, err := parseQueryVal(t.Schema().Val, vs)
		if err != nil {
			fmt.Fprintln(os.Stderr, "qbst:", err)
			return 1
		}
		id, val, found, err := t.Nearest(v)
		if err != nil {
			fmt.Fprintln(os.Stderr, "qbst:", err)
			return exitCodeFor(err)
		}
		if found {
			d := fieldDistance(t.Schema().Val, val, v)
			w.Write([]string{strconv.FormatFloat(d, 'g', -1, 64), walk.FormatField(id), walk.FormatField(val)})
		}
		return 0
	}
	switch args[0] {
	case "value":
		if rc := emit(args[1]); rc != 0 {
			return rc
		}
	case "list":
		rc, err := forEachLine(args[1], emit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "qbst:", err)
			return 2
		}
		if rc != 0 {
			return rc
		}
	default:
		fmt.Fprintln(os.Stderr, "qbst: nn requires 'value' or 'list'")
		return 1
	}
	w.Flush()
	return 0
}

func cmdKNN(t *bstreego.Tree, args []string) int {
	var vs string
	var k int64
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-v":
			i++
			vs = args[i]
		case "-k":
			i++
			n, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				fmt.Fprintln(os.Stderr, "qbst: bad -k:", err)
				return 1
			}
			k = n
		}
	}
	if vs == "" || k <= 0 {
		fmt.Fprintln(os.Stderr, "usage: qbst FILE knn -v V -k K")
		return 1
	}
	v, err := parseQueryVal(t.Schema().Val, vs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "qbst:", err)
		return 1
	}
	w := csv.NewWriter(os.Stdout)
	w.Write([]string{"distance", "id", "val"})
	visitor := &distanceCSVVisitor{schema: t.Schema(), query: v, w: w}
	if _, err := t.KNN(v, k, visitor); err != nil {
		fmt.Fprintln(os.Stderr, "qbst:", err)
		return exitCodeFor(err)
	}
	w.Flush()
	return 0
}

func cmdRange(t *bstreego.Tree, args []string) int {
	var lo, hi string
	var limit int64
	countOnly := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			i++
			lo = args[i]
		case "-t":
			i++
			hi = args[i]
		case "-l":
			i++
			n, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				fmt.Fprintln(os.Stderr, "qbst: bad -l:", err)
				return 1
			}
			limit = n
		case "-c":
			countOnly = true
		}
	}
	if lo == "" || hi == "" {
		fmt.Fprintln(os.Stderr, "usage: qbst FILE range -f LO -t HI [-l LIMIT] [-c]")
		return 1
	}
	loV, err := parseQueryVal(t.Schema().Val, lo)
	if err != nil {
		fmt.Fprintln(os.Stderr, "qbst:", err)
		return 1
	}
	hiV, err := parseQueryVal(t.Schema().Val, hi)
	if err != nil {
		fmt.Fprintln(os.Stderr, "qbst:", err)
		return 1
	}
	if countOnly {
		n, err := t.RangeCount(loV, hiV)
		if err != nil {
			fmt.Fprintln(os.Stderr, "qbst:", err)
			return exitCodeFor(err)
		}
		fmt.Println(n)
		return 0
	}
	w := csv.NewWriter(os.Stdout)
	w.Write([]string{"id", "val"})
	visitor := &walk.CSVVisitor{Schema: t.Schema(), W: w}
	if _, err := t.Range(loV, hiV, limit, visitor); err != nil {
		fmt.Fprintln(os.Stderr, "qbst:", err)
		return exitCodeFor(err)
	}
	return 0
}

func cmdStats(t *bstreego.Tree) int {
	snap, err := obs.Snapshot()
	if err != nil {
		fmt.Fprintln(os.Stderr, "qbst:", err)
		return 2
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return writeOrFail(enc.Encode(snap))
}

func writeOrFail(err error) int {
	if err != nil {
		log.Println("qbst:", err)
		return 2
	}
	return 0
}

// distanceCSVVisitor writes KNN results as "distance,id,val" in the
// order the walker visits them (already increasing-distance, per
// internal/walk's two-cursor merge).
type distanceCSVVisitor struct {
	schema entry.Schema
	query  any
	w      *csv.Writer
}

func (d *distanceCSVVisitor) Visit(idx int64, entryBytes []byte) bool {
	id, val := d.schema.DecodeEntry(entryBytes)
	dist := fieldDistance(d.schema.Val, val, d.query)
	d.w.Write([]string{strconv.FormatFloat(dist, 'g', -1, 64), walk.FormatField(id), walk.FormatField(val)})
	return true
}
func (d *distanceCSVVisitor) CapacityHint(n int64, ok bool) {}
func (d *distanceCSVVisitor) Finish()                       {}

func fieldDistance(ft entry.FieldType, val, query any) float64 {
	buf := make([]byte, ft.Width)
	_ = ft.Encode(buf, val)
	qbuf := make([]byte, ft.Width)
	_ = ft.Encode(qbuf, query)
	return walk.AbsDistance(ft, buf, qbuf)
}

func parseQueryVal(ft entry.FieldType, s string) (any, error) {
	switch ft.Kind {
	case entry.KindUnsigned:
		return strconv.ParseUint(s, 10, 64)
	case entry.KindSigned:
		return strconv.ParseInt(s, 10, 64)
	case entry.KindFloat:
		return strconv.ParseFloat(s, 64)
	case entry.KindString:
		return []byte(s), nil
	default:
		return nil, fmt.Errorf("unsupported field kind %v", ft.Kind)
	}
}

func forEachLine(path string, fn func(string) int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if rc := fn(line); rc != 0 {
			return rc, nil
		}
	}
	return 0, sc.Err()
}

func exitCodeFor(err error) int {
	be, ok := err.(*bstreego.Error)
	if !ok {
		return 1
	}
	switch be.Kind {
	case bstreego.InvalidInput, bstreego.OutOfRange:
		return 1
	case bstreego.IoError:
		return 2
	case bstreego.FormatError:
		return 3
	default:
		return 1
	}
}
