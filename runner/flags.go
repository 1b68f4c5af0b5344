package runner

import (
	"errors"
	"fmt"
	"strings"
)

// Flags classifies a test case by the hardware block it probes.
type Flags uint32

const (
	FlagTA        Flags = 1 << 0  // binning behavior
	FlagISP       Flags = 1 << 1  // rasterizer behavior
	FlagBenchmark Flags = 1 << 20 // throughput measurements
)

// FlagAll selects every class.
const FlagAll = FlagTA | FlagISP | FlagBenchmark

// ErrUnknownFlag is returned by ParseFlags for an unknown class name.
var ErrUnknownFlag = errors.New("runner: unknown flag")

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagTA, "ta"},
	{FlagISP, "isp"},
	{FlagBenchmark, "benchmark"},
}

// String returns the lower-case class names joined by commas.
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
			f &^= fn.f
		}
	}
	if f != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(f)))
	}
	return strings.Join(parts, ",")
}

// ParseFlags parses a comma separated list such as "ta,isp". "all" selects
// every class and "bench" is accepted for "benchmark". The empty string
// parses to 0.
func ParseFlags(s string) (Flags, error) {
	var f Flags
	for part := range strings.SplitSeq(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "":
			continue
		case "all":
			f |= FlagAll
			continue
		case "bench":
			part = "benchmark"
		}
		found := false
		for _, fn := range flagNames {
			if fn.name == part {
				f |= fn.f
				found = true
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrUnknownFlag, part)
		}
	}
	return f, nil
}
