// Package payload defines how a script is embedded in the installer stub
// executable: the stub bytes, Marker, the script bytes, then the script length
// as an 8-byte big-endian trailer.
package payload

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Marker separates the stub executable from the appended script
const Marker = "###KODLAEWLONG_SCRIPT_START###"

// TrailerSize is the length of the script length trailer
const TrailerSize = 8

// Append writes stub, Marker, script and the length trailer to w in that order
func Append(w io.Writer, stub, script io.Reader) (int64, error) {
	var total int64

	n, err := io.Copy(w, stub)
	total += n
	if err != nil {
		return total, fmt.Errorf("failed to copy stub: %w", err)
	}

	m, err := io.WriteString(w, Marker)
	total += int64(m)
	if err != nil {
		return total, fmt.Errorf("failed to write marker: %w", err)
	}

	size, err := io.Copy(w, script)
	total += size
	if err != nil {
		return total, fmt.Errorf("failed to copy script: %w", err)
	}

	var trailer [TrailerSize]byte
	binary.BigEndian.PutUint64(trailer[:], uint64(size))
	m, err = w.Write(trailer[:])
	total += int64(m)
	if err != nil {
		return total, fmt.Errorf("failed to write trailer: %w", err)
	}
	return total, nil
}

// Extract returns the script appended to data. The script is located from the
// trailer, so marker text in the stub or inside the script itself is never
// taken for the boundary.
func Extract(data []byte) ([]byte, bool) {
	if len(data) < len(Marker)+TrailerSize {
		return nil, false
	}
	body := data[:len(data)-TrailerSize]
	size := binary.BigEndian.Uint64(data[len(body):])
	if size == 0 || size > uint64(len(body)-len(Marker)) {
		return nil, false
	}

	start := len(body) - int(size)
	if !bytes.Equal(body[start-len(Marker):start], []byte(Marker)) {
		return nil, false
	}
	return body[start:], true
}
