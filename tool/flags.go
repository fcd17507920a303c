package tool

import "flag"

// Flags holds runtime overrides from CLI flags.
type Flags struct {
	Debug bool
}

// SetFlags parses CLI flags and returns them.
func SetFlags() Flags {
	var f Flags
	flag.BoolVar(&f.Debug, "debug", false, "output debugging information")
	flag.BoolVar(&f.Debug, "d", false, "output debugging information (shorthand)")
	flag.Parse()
	return f
}
