package command

import (
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/isetdb/pkg/iset"
)

// Reply is a typed command result. Wire serialization is the caller's
// concern; replies are plain Go values with a human-readable rendering.
type Reply interface {
	String() string
}

// IntReply is a numeric result (added counts, cardinality).
type IntReply int64

// String renders the integer.
func (r IntReply) String() string {
	return strconv.FormatInt(int64(r), 10)
}

// BoolReply is a 0/1 result (removed, contains, deleted).
type BoolReply bool

// String renders the boolean as 0 or 1.
func (r BoolReply) String() string {
	if r {
		return "1"
	}

	return "0"
}

// OKReply acknowledges a command with no other result.
type OKReply struct{}

// String renders the acknowledgement.
func (OKReply) String() string {
	return "OK"
}

// RowsReply is an ordered sequence of intervals.
type RowsReply []iset.Entry

// String renders one interval per line.
func (r RowsReply) String() string {
	if len(r) == 0 {
		return "(empty)"
	}

	var sb strings.Builder

	for idx, entry := range r {
		if idx > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(strconv.FormatFloat(entry.Low, 'g', -1, 64))
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(entry.High, 'g', -1, 64))
		sb.WriteByte(' ')
		sb.WriteString(entry.Member)
	}

	return sb.String()
}

// KeysReply is a sorted list of keys.
type KeysReply []string

// String renders one key per line.
func (r KeysReply) String() string {
	if len(r) == 0 {
		return "(empty)"
	}

	return strings.Join(r, "\n")
}
