// SPDX-License-Identifier: MPL-2.0

package scriptsource

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// maxLineSize bounds a single line of fetched script text.
const maxLineSize = 16 << 20

// readLines reads r to the end and returns its lines, each followed by a
// single "\n". "\n", "\r\n" and a lone "\r" all terminate a line.
func readLines(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanAnyLines)

	var b strings.Builder
	for scanner.Scan() {
		b.Write(scanner.Bytes())
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// scanAnyLines is bufio.ScanLines extended to old Mac line endings.
func scanAnyLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// '\r': need one more byte to tell "\r\n" from a lone "\r".
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
