package slurm

import (
	"strconv"
	"strings"
)

// ExpandHostlist expands a compressed scheduler node list such as
// "gpu[01-03],login1" into individual hostnames. Commas only separate
// segments at bracket depth zero, so "a[1,3],b" is two segments.
// Malformed range fragments (non-numeric bounds, descending ranges)
// contribute no hostnames rather than failing the whole expression.
func ExpandHostlist(nodelist string) []string {
	out := []string{}
	start := 0
	depth := 0
	for i := 0; i < len(nodelist); i++ {
		switch nodelist[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, expandSegment(nodelist[start:i])...)
				start = i + 1
			}
		}
	}
	return append(out, expandSegment(nodelist[start:])...)
}

func expandSegment(segment string) []string {
	open := strings.IndexByte(segment, '[')
	if open < 0 {
		return []string{segment}
	}
	end := strings.IndexByte(segment, ']')
	if end < open {
		return []string{segment}
	}

	prefix := segment[:open]
	out := []string{}
	for _, spec := range strings.Split(segment[open+1:end], ",") {
		for _, suffix := range expandRange(spec) {
			out = append(out, prefix+suffix)
		}
	}
	return out
}

// expandRange expands "01-03" to ["01","02","03"] and passes single
// numbers through. Zero padding follows the range's start token, so
// "8-11" stays unpadded while "08-11" pads to two digits.
func expandRange(spec string) []string {
	lo, hi, ok := strings.Cut(spec, "-")
	if !ok {
		return []string{spec}
	}
	from, err := strconv.Atoi(lo)
	if err != nil {
		return nil
	}
	to, err := strconv.Atoi(hi)
	if err != nil || to < from {
		return nil
	}

	width := len(lo)
	out := make([]string, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, pad(strconv.Itoa(n), width))
	}
	return out
}

func pad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
