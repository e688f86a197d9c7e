package transport

import (
	"fmt"
	"strings"
)

// DefaultRange is the window, in seconds, asked for when no earlier
// timestamp is known
const DefaultRange = 5

// Request is a query sent to the database over a Caller. Since holds an
// already formatted timestamp; when it is empty the request asks for the last
// Range seconds instead.
type Request struct {
	Query string
	Since string
	Range int
}

func (r Request) String() string {
	var sb strings.Builder
	sb.WriteString("SQL:")
	sb.WriteString(strings.TrimSpace(r.Query))
	if r.Since != "" {
		fmt.Fprintf(&sb, " [ since %s ]", r.Since)
	} else {
		window := r.Range
		if window <= 0 {
			window = DefaultRange
		}
		fmt.Fprintf(&sb, " [ range %d seconds ]", window)
	}
	sb.WriteByte('\n')
	return sb.String()
}

// Bytes returns the request as sent on the wire, NUL terminated
func (r Request) Bytes() []byte {
	s := r.String()
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// ParseRequest recovers the query text from request bytes. The window
// clause, if any, is returned unparsed in window.
func ParseRequest(b []byte) (query string, window string, err error) {
	s := strings.TrimRight(string(b), "\x00")
	s = strings.TrimSuffix(s, "\n")
	if !strings.HasPrefix(s, "SQL:") {
		return "", "", fmt.Errorf("transport: request lacks SQL: prefix")
	}
	s = strings.TrimPrefix(s, "SQL:")
	if open := strings.LastIndex(s, " ["); open >= 0 && strings.HasSuffix(s, "]") {
		window = strings.TrimSpace(s[open+2 : len(s)-1])
		s = s[:open]
	}
	return strings.TrimSpace(s), window, nil
}
