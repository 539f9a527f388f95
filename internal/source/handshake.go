package source

import (
	"bufio"
	"errors"
	"strings"
)

// handshakeRequest is the parsed request line and headers of a source
// connection's HTTP handshake.
type handshakeRequest struct {
	Method  string
	Target  string
	Headers map[string]string // lower-cased header names
}

var errMalformedHandshake = errors.New("malformed handshake")

// parseHandshake reads the request line and headers from r until a blank
// line (CRLF CRLF) terminates them, or the reader's limit is exhausted.
func parseHandshake(r *bufio.Reader) (*handshakeRequest, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, errMalformedHandshake
	}

	req := &handshakeRequest{
		Method:  fields[0],
		Target:  fields[1],
		Headers: make(map[string]string),
	}

	for {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		req.Headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return req, nil
}

// readLine reads one CRLF- or LF-terminated line, stripping the
// terminator.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
