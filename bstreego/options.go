package bstreego

import "github.com/xDarkicex/bstreego/internal/build"

// BuildOption configures Build. Thin re-export of build.Option so
// callers of the public package never need to import internal/build
// directly.
type BuildOption = build.Option

// WithL1Bytes sets the target L1 cache budget per block.
func WithL1Bytes(n int64) BuildOption { return build.WithL1Bytes(n) }

// WithDiskBytes sets the target disk-page group budget.
func WithDiskBytes(n int64) BuildOption { return build.WithDiskBytes(n) }

// WithFillFactor shrinks block capacity below its natural value.
func WithFillFactor(f float64) BuildOption { return build.WithFillFactor(f) }

// WithNullSide attaches a pre-encoded null-value bitmap
// (internal/nullside.Builder.Encode) to the build.
func WithNullSide(encoded []byte) BuildOption { return build.WithNullSide(encoded) }

// WithBloom attaches a pre-encoded existence filter
// (internal/exist.Builder.Encode) to the build.
func WithBloom(encoded []byte) BuildOption { return build.WithBloom(encoded) }
