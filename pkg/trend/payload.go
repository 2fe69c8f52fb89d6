package trend

import (
	"bufio"
	"bytes"
	"strings"
)

// IsolateJSON returns the part of a response between the first opening and
// the last closing square bracket, dropping any transfer framing or stray
// header lines around a JSON list.
func IsolateJSON(b []byte) ([]byte, error) {
	start := bytes.IndexByte(b, '[')
	end := bytes.LastIndexByte(b, ']')

	if start < 0 || end < start {
		return nil, ErrNoPayload
	}

	return b[start : end+1], nil
}

// IsolateTidy returns the lines of a tidy delimited response, starting from
// its header line when one is present. Blank lines are dropped. Anything that
// is not a data row is left for the row predicate to reject.
func IsolateTidy(b []byte) []string {
	lines := []string{}

	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, tidyHeader) {
			lines = lines[:0]
		}

		lines = append(lines, line)
	}

	return lines
}
