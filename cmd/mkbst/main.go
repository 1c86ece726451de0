// Command mkbst builds a bstree file from a sorted CSV stream of
// (id, val) rows, read from --input or stdin. Errors are printed to
// stderr and mapped to an exit code; this stays a plain stdlib CLI:
// plain "log", humanize for sizes, no third-party flag framework.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/xDarkicex/bstreego"
	"github.com/xDarkicex/bstreego/internal/entry"
	"github.com/xDarkicex/bstreego/internal/exist"
	"github.com/xDarkicex/bstreego/internal/nullside"
	"github.com/xDarkicex/bstreego/internal/sortmerge"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("mkbst", flag.ContinueOnError)
	input := fs.String("input", "", "input CSV file (stdin if empty)")
	hasHeader := fs.Bool("h", false, "input has a header row")
	fillFactor := fs.Float64("fill-factor", 1.0, "block fill factor in (0,1]")
	l1Bytes := fs.Int64("l1", 0, "L1 cache budget per block in bytes (0 = default)")
	diskBytes := fs.Int64("disk", 0, "disk page group budget in bytes (0 = default)")
	idType := fs.String("id-type", "", "id field type, e.g. u8")
	valType := fs.String("val-type", "", "val field type, e.g. f8")
	bloom := fs.Bool("bloom", false, "build an existence Bloom filter")
	unsorted := fs.Bool("unsorted", false, "input CSV is not pre-sorted by val; external-sort it before building")
	sortRunSize := fs.Int("sort-run-size", 0, "entries held in memory per run during external sort (0 = default)")
	tmpDir := fs.String("tmp-dir", "", "temp directory for external-sort spill files (default: os.TempDir())")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	name := fs.Arg(0)
	if name == "" || *idType == "" || *valType == "" {
		fmt.Fprintln(os.Stderr, "usage: mkbst [-h] [--input FILE] [--fill-factor F] [--l1 BYTES] [--disk BYTES] [--bloom] [--unsorted] --id-type T --val-type T NAME")
		return 1
	}

	idFT, err := bstreego.ParseFieldType(*idType)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mkbst:", err)
		return 1
	}
	valFT, err := bstreego.ParseFieldType(*valType)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mkbst:", err)
		return 1
	}
	schema := bstreego.Schema{Val: valFT, Id: idFT}

	var r io.Reader = os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintln(os.Stderr, "mkbst:", err)
			return 2
		}
		defer f.Close()
		r = bufio.NewReader(f)
	}

	entries, nulls, bl, err := readRows(r, schema, *hasHeader, *bloom)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mkbst:", err)
		return 1
	}

	opts := []bstreego.BuildOption{}
	if *fillFactor > 0 {
		opts = append(opts, bstreego.WithFillFactor(*fillFactor))
	}
	if *l1Bytes > 0 {
		opts = append(opts, bstreego.WithL1Bytes(*l1Bytes))
	}
	if *diskBytes > 0 {
		opts = append(opts, bstreego.WithDiskBytes(*diskBytes))
	}
	if nulls.Any() {
		nb, err := nulls.Encode()
		if err != nil {
			fmt.Fprintln(os.Stderr, "mkbst:", err)
			return 2
		}
		opts = append(opts, bstreego.WithNullSide(nb))
	}
	if bl != nil {
		bb, err := bl.Encode()
		if err != nil {
			fmt.Fprintln(os.Stderr, "mkbst:", err)
			return 2
		}
		opts = append(opts, bstreego.WithBloom(bb))
	}

	var src bstreego.Source = &sliceSource{entries: entries}
	var sortCleanup func() error
	if *unsorted {
		merged, cleanup, err := sortmerge.Sort(&sliceSource{entries: entries}, schema, *sortRunSize, *tmpDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "mkbst:", err)
			return 2
		}
		src, sortCleanup = merged, cleanup
	}

	path := name + ".bstree.bin"
	if err := bstreego.Build(path, schema, int64(len(entries)), src, opts...); err != nil {
		if sortCleanup != nil {
			sortCleanup()
		}
		fmt.Fprintln(os.Stderr, "mkbst:", err)
		return exitCodeFor(err)
	}
	if sortCleanup != nil {
		if err := sortCleanup(); err != nil {
			log.Printf("mkbst: warning: external-sort run-file cleanup: %v", err)
		}
	}

	info, err := os.Stat(path)
	if err == nil {
		log.Printf("mkbst: wrote %s (%d entries, %s)", path, len(entries), humanize.Bytes(uint64(info.Size())))
	}
	return 0
}

// sliceSource replays a pre-buffered, already-validated entry slice as
// a build.Source. mkbst reads its whole input into memory up front
// (it is a CLI convenience tool, not the bulk-load path itself) so it
// can size the optional null-side bitmap and Bloom filter before the
// single-pass Build call begins.
type sliceSource struct {
	entries [][]byte
	i       int
}

func (s *sliceSource) Next() ([]byte, bool, error) {
	if s.i >= len(s.entries) {
		return nil, false, nil
	}
	e := s.entries[s.i]
	s.i++
	return e, true, nil
}

func readRows(r io.Reader, schema entry.Schema, hasHeader, buildBloom bool) (entries [][]byte, nulls *nullside.Builder, bl *exist.Builder, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	var rows [][2]string
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("csv parse error: %w", err)
		}
		if first && hasHeader {
			first = false
			continue
		}
		first = false
		rows = append(rows, [2]string{rec[0], rec[1]})
	}

	nulls = nullside.NewBuilder(int64(len(rows)))
	if buildBloom {
		bl = exist.NewBuilder(int64(len(rows)))
	}

	entries = make([][]byte, 0, len(rows))
	for i, row := range rows {
		if row[1] == "" {
			nulls.MarkNull(int64(i))
			continue
		}
		id, err := parseField(schema.Id, row[0])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("row %d: id: %w", i, err)
		}
		val, err := parseField(schema.Val, row[1])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("row %d: val: %w", i, err)
		}
		buf := make([]byte, schema.EntrySize())
		if err := schema.EncodeEntry(buf, id, val); err != nil {
			return nil, nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		if bl != nil {
			bl.Add(schema.ValBytes(buf))
		}
		entries = append(entries, buf)
	}
	return entries, nulls, bl, nil
}

func parseField(ft entry.FieldType, s string) (any, error) {
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

func exitCodeFor(err error) int {
	var be *bstreego.Error
	if e, ok := err.(*bstreego.Error); ok {
		be = e
	}
	if be == nil {
		return 1
	}
	switch be.Kind {
	case bstreego.InvalidInput:
		return 1
	case bstreego.IoError:
		return 2
	case bstreego.FormatError:
		return 3
	default:
		return 1
	}
}
