package build

// Option configures a Builder using the functional-options pattern:
// each Option is a closure over a private config struct, so new knobs
// can be added without breaking callers.
type Option func(*config) error

type config struct {
	l1Bytes    int64
	diskBytes  int64
	fillFactor float64
	nullSide   []byte
	bloom      []byte
}

func defaultConfig() config {
	return config{
		l1Bytes:    64 * 1024,
		diskBytes:  255 * 64 * 1024,
		fillFactor: 1,
	}
}

// WithL1Bytes sets the target L1 cache budget per block. Default 64 KiB.
func WithL1Bytes(n int64) Option {
	return func(c *config) error {
		if n <= 0 {
			return errInvalidOption("l1 bytes must be positive")
		}
		c.l1Bytes = n
		return nil
	}
}

// WithDiskBytes sets the target disk-page group budget. Default is
// sized for roughly 255 L1 blocks per disk group.
func WithDiskBytes(n int64) Option {
	return func(c *config) error {
		if n <= 0 {
			return errInvalidOption("disk bytes must be positive")
		}
		c.diskBytes = n
		return nil
	}
}

// WithFillFactor shrinks n1 below its natural L1-bytes-derived value,
// in (0,1]. Default 1 (full blocks).
func WithFillFactor(f float64) Option {
	return func(c *config) error {
		if f <= 0 || f > 1 {
			return errInvalidOption("fill factor must be in (0,1]")
		}
		c.fillFactor = f
		return nil
	}
}

// WithNullSide attaches a pre-encoded null-value bitmap
// (internal/nullside), written to the companion side file at
// NullSidePath(path) rather than into the main file.
func WithNullSide(encoded []byte) Option {
	return func(c *config) error {
		c.nullSide = encoded
		return nil
	}
}

// WithBloom attaches a pre-encoded existence Bloom filter section
// (internal/exist) to be embedded immediately after the tree body.
func WithBloom(encoded []byte) Option {
	return func(c *config) error {
		c.bloom = encoded
		return nil
	}
}

type optionError string

func (e optionError) Error() string { return string(e) }

func errInvalidOption(msg string) error { return optionError("build: " + msg) }
