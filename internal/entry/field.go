// Package entry implements the fixed-width (Id, Val) codec: tagged
// dispatch by a small Kind enum, selected once at open/build time,
// rather than one generic codec per (Id,Val) type pair.
package entry

import "fmt"

// Kind tags the wire representation of one field (Id or Val).
type Kind byte

const (
	KindUnsigned Kind = iota
	KindSigned
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindUnsigned:
		return "u"
	case KindSigned:
		return "i"
	case KindFloat:
		return "f"
	case KindString:
		return "t"
	default:
		return "?"
	}
}

// FieldType is the on-disk type tag + width of one field.
type FieldType struct {
	Kind  Kind
	Width int // bytes; 3-8 for Unsigned/Signed, 4 or 8 for Float, 1-255 for String
}

func (ft FieldType) String() string { return fmt.Sprintf("%s%d", ft.Kind, ft.Width) }

// Validate rejects widths outside what this Kind supports.
func (ft FieldType) Validate() error {
	switch ft.Kind {
	case KindUnsigned, KindSigned:
		if ft.Width < 3 || ft.Width > 8 {
			return fmt.Errorf("entry: %s width must be 3-8 bytes, got %d", ft.Kind, ft.Width)
		}
	case KindFloat:
		if ft.Width != 4 && ft.Width != 8 {
			return fmt.Errorf("entry: float width must be 4 or 8 bytes, got %d", ft.Width)
		}
	case KindString:
		if ft.Width < 1 || ft.Width > 255 {
			return fmt.Errorf("entry: string width must be 1-255 bytes, got %d", ft.Width)
		}
	default:
		return fmt.Errorf("entry: unknown kind %v", ft.Kind)
	}
	return nil
}

// ParseFieldType parses a compact type token such as "u4", "i8", "f4",
// "f8", or "t10" — the format used on the mkbst/qbst command lines.
func ParseFieldType(s string) (FieldType, error) {
	if len(s) < 2 {
		return FieldType{}, fmt.Errorf("entry: invalid field type %q", s)
	}
	var kind Kind
	switch s[0] {
	case 'u':
		kind = KindUnsigned
	case 'i':
		kind = KindSigned
	case 'f':
		kind = KindFloat
	case 't':
		kind = KindString
	default:
		return FieldType{}, fmt.Errorf("entry: unknown field type prefix %q", s[:1])
	}
	width := 0
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return FieldType{}, fmt.Errorf("entry: invalid width in field type %q", s)
		}
		width = width*10 + int(c-'0')
	}
	ft := FieldType{Kind: kind, Width: width}
	if err := ft.Validate(); err != nil {
		return FieldType{}, err
	}
	return ft, nil
}
