// Package boardloader parses the initial grid from the board file
// format: a "<rows>x<cols>" header line followed by rows*cols label
// lines, UTF-8, one token per line, blank lines ignored.
//
// This is an external collaborator of the kernel: it produces a
// *kernel.Grid and never touches kernel state itself.
package boardloader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"memory-arena-server/kernel"
)

// Load parses the board file format from r and returns a ready-to-use
// Grid, or an error describing the first malformed line.
func Load(r io.Reader) (*kernel.Grid, error) {
	lines, err := nonEmptyLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("boardloader: empty board file")
	}

	rows, cols, err := parseHeader(lines[0])
	if err != nil {
		return nil, err
	}

	labels := lines[1:]
	want := rows * cols
	if len(labels) != want {
		return nil, fmt.Errorf("boardloader: header declares %dx%d (%d labels) but found %d", rows, cols, want, len(labels))
	}
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("boardloader: label %d is empty", i)
		}
	}

	return kernel.NewGrid(rows, cols, labels), nil
}

func nonEmptyLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("boardloader: read: %w", err)
	}
	return lines, nil
}

func parseHeader(header string) (rows, cols int, err error) {
	parts := strings.SplitN(header, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("boardloader: malformed header %q, want RxC", header)
	}
	rows, err = strconv.Atoi(parts[0])
	if err != nil || rows <= 0 {
		return 0, 0, fmt.Errorf("boardloader: malformed row count in header %q", header)
	}
	cols, err = strconv.Atoi(parts[1])
	if err != nil || cols <= 0 {
		return 0, 0, fmt.Errorf("boardloader: malformed column count in header %q", header)
	}
	return rows, cols, nil
}
