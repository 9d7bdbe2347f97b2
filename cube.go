package filmgrade

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CubeLUT is a parsed 3D lookup table.
//
// Table is blue-major: the sample for grid point (r, g, b) is Table[b*Size*Size + g*Size + r].
// A CubeLUT is read-only after parsing and can be shared between goroutines.
type CubeLUT struct {
	Title     string
	Size      int
	DomainMin [3]float64
	DomainMax [3]float64
	Table     [][3]float64
}

// At returns the grid sample at (r, g, b).
func (l *CubeLUT) At(r, g, b int) [3]float64 {
	return l.Table[b*l.Size*l.Size+g*l.Size+r]
}

// IdentityCube builds a LUT of the given size that maps every color to itself.
func IdentityCube(size int) *CubeLUT {
	l := &CubeLUT{
		Title:     "identity",
		Size:      size,
		DomainMax: [3]float64{1, 1, 1},
		Table:     make([][3]float64, 0, size*size*size),
	}
	step := 1 / float64(size-1)
	for b := 0; b < size; b++ {
		for g := 0; g < size; g++ {
			for r := 0; r < size; r++ {
				l.Table = append(l.Table, [3]float64{float64(r) * step, float64(g) * step, float64(b) * step})
			}
		}
	}
	return l
}

// ParseCube reads a .cube LUT.
func ParseCube(r io.Reader) (*CubeLUT, error) {
	return parseCube(r, "")
}

func parseCube(r io.Reader, source string) (*CubeLUT, error) {
	l := &CubeLUT{DomainMax: [3]float64{1, 1, 1}}
	fail := func(line int, format string, args ...any) error {
		return &LUTParseError{Source: source, Line: line, Msg: fmt.Sprintf(format, args...)}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch key := fields[0]; {
		case key == "TITLE":
			if start := strings.IndexByte(line, '"'); start != -1 {
				if end := strings.LastIndexByte(line, '"'); end > start {
					l.Title = line[start+1 : end]
				}
			}

		case key == "LUT_3D_SIZE":
			if len(fields) != 2 {
				return nil, fail(lineNo, "LUT_3D_SIZE expects one value")
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fail(lineNo, "invalid LUT_3D_SIZE %q", fields[1])
			}
			if n < 2 || n > maxCubeSize {
				return nil, fail(lineNo, "LUT_3D_SIZE %d out of range [2, %d]", n, maxCubeSize)
			}
			if l.Size != 0 {
				return nil, fail(lineNo, "duplicate LUT_3D_SIZE")
			}
			if len(l.Table) > n*n*n {
				return nil, fail(lineNo, "more than %d table rows", n*n*n)
			}
			l.Size = n

		case key == "LUT_1D_SIZE":
			return nil, fail(lineNo, "1D LUTs are not supported")

		case key == "DOMAIN_MIN", key == "DOMAIN_MAX":
			v, err := parseTriple(fields[1:])
			if err != nil {
				return nil, fail(lineNo, "%s: %v", key, err)
			}
			if key == "DOMAIN_MIN" {
				l.DomainMin = v
			} else {
				l.DomainMax = v
			}

		case key == "LUT_3D_INPUT_RANGE":
			if len(fields) != 3 {
				return nil, fail(lineNo, "LUT_3D_INPUT_RANGE expects two values")
			}
			lo, err1 := strconv.ParseFloat(fields[1], 64)
			hi, err2 := strconv.ParseFloat(fields[2], 64)
			if err1 != nil || err2 != nil {
				return nil, fail(lineNo, "invalid LUT_3D_INPUT_RANGE")
			}
			l.DomainMin = [3]float64{lo, lo, lo}
			l.DomainMax = [3]float64{hi, hi, hi}

		case isKeyword(key):
			// Unknown directives (LUT_IN_VIDEO_RANGE and friends) do not affect the table.

		default:
			v, err := parseTriple(fields)
			if err != nil {
				return nil, fail(lineNo, "table row: %v", err)
			}
			// The size directive may follow the rows, the count is checked at the end then.
			limit := maxCubeSize * maxCubeSize * maxCubeSize
			if l.Size != 0 {
				limit = l.Size * l.Size * l.Size
			}
			if len(l.Table) == limit {
				return nil, fail(lineNo, "more than %d table rows", limit)
			}
			l.Table = append(l.Table, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cube: %w", err)
	}

	if l.Size == 0 {
		return nil, fail(0, "missing LUT_3D_SIZE")
	}
	if want := l.Size * l.Size * l.Size; len(l.Table) != want {
		return nil, fail(0, "got %d table rows, want %d", len(l.Table), want)
	}
	for c := 0; c < 3; c++ {
		if !(l.DomainMin[c] < l.DomainMax[c]) {
			return nil, fail(0, "empty domain on channel %d: [%g, %g]", c, l.DomainMin[c], l.DomainMax[c])
		}
	}
	return l, nil
}

func parseTriple(fields []string) ([3]float64, error) {
	var v [3]float64
	if len(fields) != 3 {
		return v, fmt.Errorf("want 3 numbers, got %d tokens", len(fields))
	}
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return v, fmt.Errorf("invalid number %q", f)
		}
		if x != x {
			return v, fmt.Errorf("NaN value")
		}
		v[i] = x
	}
	return v, nil
}

// isKeyword reports whether a token starts like a directive rather than a number.
func isKeyword(tok string) bool {
	c := tok[0]
	return (c >= 'A' && c <= 'Z') || c == '_'
}
