// Package header implements the variable-length binary header that
// opens every bstree file: a short fixed prefix (magic, version,
// header_len) followed by a self-describing header_bytes section
// carrying the (Id, Val) field layout, the N/n1/k counts, and the
// recursive layout plan itself — one record per level, sentinel
// terminated, so a reader replays the exact level boundaries a
// builder chose instead of recomputing them from byte budgets.
package header

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/xDarkicex/bstreego/internal/entry"
	"github.com/xDarkicex/bstreego/internal/layout"
)

// Magic identifies a bstree file.
var Magic = [4]byte{'B', 'S', 'T', '1'}

// FormatVersion is bumped whenever header_bytes' encoding changes in a
// backward-incompatible way.
const FormatVersion uint16 = 1

// PrefixSize is the fixed portion preceding header_bytes: magic(4) +
// version(2) + header_len(4).
const PrefixSize = 4 + 2 + 4

const sentinelDepth uint16 = 0xFFFF

// flags bits, stored in Header.Flags.
const (
	FlagHasNullSide uint32 = 1 << iota
	FlagHasBloom
)

// LevelRecord is one persisted recursive-layout level: the depth, the
// disk-group (or bare-block) unit size "n_root", the entry count this
// level covers "n_main", and the byte offset where the level begins.
type LevelRecord struct {
	Depth      uint16
	NRoot      int64
	NMain      int64
	FileOffset int64
}

// Header is the fully parsed contents of a bstree file's header.
type Header struct {
	Version uint16

	IdKind   entry.Kind
	IdWidth  uint32
	ValKind  entry.Kind
	ValWidth uint32

	N  int64
	N1 int64
	K  int64

	Levels     []LevelRecord
	Tail       int64
	TailOffset int64

	FileLen int64 // declared total size of this file, for truncation checks

	Flags        uint32
	NullSideSize uint32 // bytes of the optional null-side section, 0 if absent
	BloomSize    uint32 // bytes of the optional bloom-filter section, 0 if absent

	ChecksumCRC uint32

	headerLen uint32 // length of header_bytes; set by WriteTo/ReadFrom
}

// New builds a Header from a schema and an already-computed layout
// plan: every level record is taken directly from plan.Levels, so the
// file a reader reconstructs has identical block boundaries to the one
// the builder wrote. The caller fills in FileLen and the optional
// NullSideSize/BloomSize/Flags afterward.
func New(s entry.Schema, plan *layout.Plan) Header {
	levels := make([]LevelRecord, len(plan.Levels))
	for i, lvl := range plan.Levels {
		levels[i] = LevelRecord{
			Depth:      uint16(lvl.Depth),
			NRoot:      lvl.GroupSize,
			NMain:      lvl.NMain,
			FileOffset: lvl.FileOffset,
		}
	}
	return Header{
		Version:    FormatVersion,
		IdKind:     s.Id.Kind,
		IdWidth:    uint32(s.Id.Width),
		ValKind:    s.Val.Kind,
		ValWidth:   uint32(s.Val.Width),
		N:          plan.N,
		N1:         plan.N1,
		K:          plan.K,
		Levels:     levels,
		Tail:       plan.Tail,
		TailOffset: plan.TailOffset,
	}
}

// Schema reconstructs the (Id, Val) field layout encoded in the header.
func (h Header) Schema() entry.Schema {
	return entry.Schema{
		Id:  entry.FieldType{Kind: h.IdKind, Width: int(h.IdWidth)},
		Val: entry.FieldType{Kind: h.ValKind, Width: int(h.ValWidth)},
	}
}

// Plan replays the persisted level records into a layout.Plan — a
// direct reconstruction, not a recomputation from N1/K byte budgets.
func (h Header) Plan() *layout.Plan {
	entrySize := int64(h.Schema().EntrySize())
	levels := make([]layout.Level, len(h.Levels))
	for i, lr := range h.Levels {
		grouped := lr.NRoot > h.N1
		var numUnits int64
		if lr.NRoot > 0 {
			numUnits = lr.NMain / lr.NRoot
		}
		levels[i] = layout.Level{
			Depth:      int(lr.Depth),
			NMain:      lr.NMain,
			Grouped:    grouped,
			FileOffset: lr.FileOffset,
			GroupSize:  lr.NRoot,
			NumUnits:   numUnits,
		}
	}
	return &layout.Plan{
		N:          h.N,
		EntrySize:  entrySize,
		N1:         h.N1,
		K:          h.K,
		Levels:     levels,
		Tail:       h.Tail,
		TailOffset: h.TailOffset,
		BodySize:   h.TailOffset + h.Tail*entrySize,
	}
}

// Len returns the total on-disk byte length of the header (the fixed
// prefix plus header_bytes) — the offset where the tree body begins.
func (h Header) Len() int64 { return int64(PrefixSize) + int64(h.headerLen) }

// BodyLen returns the byte length header_bytes will occupy once
// encoded. Every field but the level-record list is fixed-width, and
// Levels' length is already fixed, so this is knowable (e.g. to
// compute FileLen) before the actual encode.
func (h Header) BodyLen() int64 { return int64(len(encodeBody(h))) }

func (h Header) HasNullSide() bool { return h.Flags&FlagHasNullSide != 0 }
func (h Header) HasBloom() bool    { return h.Flags&FlagHasBloom != 0 }

// WriteTo encodes the header and writes it to w.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	body := encodeBody(*h)
	h.headerLen = uint32(len(body))

	buf := make([]byte, PrefixSize+len(body))
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint32(buf[6:10], h.headerLen)
	copy(buf[PrefixSize:], body)

	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom parses the fixed prefix, then the header_bytes section it
// declares, validating magic, version, and checksum.
func ReadFrom(r io.Reader) (Header, error) {
	prefix := make([]byte, PrefixSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return Header{}, fmt.Errorf("header: read prefix: %w", err)
	}
	if !bytes.Equal(prefix[0:4], Magic[:]) {
		return Header{}, fmt.Errorf("header: bad magic: %x", prefix[0:4])
	}
	version := binary.LittleEndian.Uint16(prefix[4:6])
	if version > FormatVersion {
		return Header{}, fmt.Errorf("header: unsupported format version %d, max %d", version, FormatVersion)
	}
	headerLen := binary.LittleEndian.Uint32(prefix[6:10])

	body := make([]byte, headerLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Header{}, fmt.Errorf("header: read header_bytes: %w", err)
	}

	h, err := decodeBody(body)
	if err != nil {
		return Header{}, err
	}
	h.Version = version
	h.headerLen = headerLen
	return h, nil
}

// encodeBody serializes everything after the fixed prefix: id/val type
// tags and widths, N/n1/k, the recursive level-record list terminated
// by a sentinel depth, tail residual, declared file length, the
// optional-section flags/sizes, and a trailing CRC32 over everything
// before it.
func encodeBody(h Header) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(h.IdKind))
	buf.WriteByte(byte(h.IdWidth))
	buf.WriteByte(byte(h.ValKind))
	buf.WriteByte(byte(h.ValWidth))

	writeU64(&buf, uint64(h.N))
	writeU32(&buf, uint32(h.N1))
	writeU32(&buf, uint32(h.K))

	for _, lr := range h.Levels {
		writeU16(&buf, lr.Depth)
		writeU64(&buf, uint64(lr.NRoot))
		writeU64(&buf, uint64(lr.NMain))
		writeU64(&buf, uint64(lr.FileOffset))
	}
	writeU16(&buf, sentinelDepth)

	writeU64(&buf, uint64(h.Tail))
	writeU64(&buf, uint64(h.TailOffset))
	writeU64(&buf, uint64(h.FileLen))

	writeU32(&buf, h.Flags)
	writeU32(&buf, h.NullSideSize)
	writeU32(&buf, h.BloomSize)

	crc := crc32.ChecksumIEEE(buf.Bytes())
	writeU32(&buf, crc)

	return buf.Bytes()
}

func decodeBody(body []byte) (Header, error) {
	if len(body) < 4 {
		return Header{}, fmt.Errorf("header: truncated header_bytes")
	}
	wantCRC := binary.LittleEndian.Uint32(body[len(body)-4:])
	gotCRC := crc32.ChecksumIEEE(body[:len(body)-4])
	if wantCRC != gotCRC {
		return Header{}, fmt.Errorf("header: checksum mismatch: file=%x computed=%x", wantCRC, gotCRC)
	}

	r := &bodyReader{b: body[:len(body)-4]}
	var h Header
	h.IdKind = entry.Kind(r.u8())
	h.IdWidth = uint32(r.u8())
	h.ValKind = entry.Kind(r.u8())
	h.ValWidth = uint32(r.u8())
	h.N = int64(r.u64())
	h.N1 = int64(r.u32())
	h.K = int64(r.u32())

	for {
		depth := r.u16()
		if r.err != nil || depth == sentinelDepth {
			break
		}
		h.Levels = append(h.Levels, LevelRecord{
			Depth:      depth,
			NRoot:      int64(r.u64()),
			NMain:      int64(r.u64()),
			FileOffset: int64(r.u64()),
		})
	}
	h.Tail = int64(r.u64())
	h.TailOffset = int64(r.u64())
	h.FileLen = int64(r.u64())
	h.Flags = r.u32()
	h.NullSideSize = r.u32()
	h.BloomSize = r.u32()
	h.ChecksumCRC = gotCRC

	if r.err != nil {
		return Header{}, r.err
	}
	if err := h.Schema().Val.Validate(); err != nil {
		return Header{}, fmt.Errorf("header: %w", err)
	}
	if err := h.Schema().Id.Validate(); err != nil {
		return Header{}, fmt.Errorf("header: %w", err)
	}
	if h.N < 0 || h.N1 < 1 || h.K < 0 {
		return Header{}, fmt.Errorf("header: invalid layout counts N=%d N1=%d K=%d", h.N, h.N1, h.K)
	}
	return h, nil
}

// bodyReader pulls fixed-width fields off the front of a byte slice,
// latching the first out-of-bounds read into err so callers only need
// to check once at the end.
type bodyReader struct {
	b   []byte
	pos int
	err error
}

func (r *bodyReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.b) {
		r.err = fmt.Errorf("header: truncated header_bytes")
		return nil
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (r *bodyReader) u8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *bodyReader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *bodyReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *bodyReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
