// Package utils provides small helpers shared by the skillvault packages:
// line-numbered rendering, binary content detection and file permission
// string conversion.
package utils

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// binarySniffLen is how many leading bytes are inspected to classify content
const binarySniffLen = 512

// ContentWithLineNumber formats a slice of strings by prefixing each line with its line number
// starting from the given offset, with appropriate padding for alignment.
func ContentWithLineNumber(lines []string, offset int) string {
	var b strings.Builder
	maxLineWidth := 1

	if len(lines) > 0 {
		maxLineNum := offset + len(lines) - 1
		maxLineWidth = len(strconv.Itoa(maxLineNum))
	}

	for i, line := range lines {
		fmt.Fprintf(&b, "%*d: %s\n", maxLineWidth, offset+i, line)
	}

	return b.String()
}

// IsBinaryContent reports whether data looks binary: a NULL byte within the
// first 512 bytes or content that is not valid UTF-8.
func IsBinaryContent(data []byte) bool {
	head := data
	if len(head) > binarySniffLen {
		head = head[:binarySniffLen]
	}
	for _, b := range head {
		if b == 0 {
			return true
		}
	}
	return !utf8.Valid(data)
}

// FormatPermissions renders the permission bits of mode as a POSIX string such as "rw-r--r--"
func FormatPermissions(mode fs.FileMode) string {
	return mode.Perm().String()[1:]
}

// ParsePermissions converts a POSIX permission string such as "rwxr-xr-x" back into file mode bits
func ParsePermissions(s string) (fs.FileMode, error) {
	if len(s) != 9 {
		return 0, errors.Errorf("invalid permission string %q: expected 9 characters", s)
	}

	const flags = "rwxrwxrwx"
	var mode fs.FileMode
	for i := 0; i < 9; i++ {
		switch s[i] {
		case flags[i]:
			mode |= 1 << uint(8-i)
		case '-':
		default:
			return 0, errors.Errorf("invalid permission string %q: unexpected %q at position %d", s, s[i], i)
		}
	}
	return mode, nil
}
