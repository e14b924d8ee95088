package payload

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendString(t *testing.T, stub, script string) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := Append(&buf, strings.NewReader(stub), strings.NewReader(script))
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	return buf.Bytes()
}

func TestAppendExtract(t *testing.T) {
	stub := "MZ\x00\x01 stub body mentions " + Marker + " as a constant"
	script := "\ufeffWrite-Host 'hello'"

	got, ok := Extract(appendString(t, stub, script))
	require.True(t, ok)
	assert.Equal(t, script, string(got))
}

func TestAppendExtract_MarkerInsideScript(t *testing.T) {
	script := "$apps = @('Tool " + Marker + " Edition')\nWrite-Host 'done'"

	got, ok := Extract(appendString(t, "MZ-stub", script))
	require.True(t, ok)
	assert.Equal(t, script, string(got))
}

func TestExtract_NoPayload(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"plain stub", []byte("MZ plain stub")},
		{"marker without trailer", []byte("MZ" + Marker + "Write-Host 'hi'")},
		{"empty script", appendString(t, "MZ", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Extract(tt.data)
			assert.False(t, ok)
		})
	}
}

func TestExtract_TrailerMismatch(t *testing.T) {
	data := appendString(t, "MZ-stub", "Write-Host 'hi'")

	oversized := append([]byte{}, data...)
	binary.BigEndian.PutUint64(oversized[len(oversized)-TrailerSize:], uint64(len(data)))
	_, ok := Extract(oversized)
	assert.False(t, ok)

	shifted := append([]byte{}, data...)
	binary.BigEndian.PutUint64(shifted[len(shifted)-TrailerSize:], 3)
	_, ok = Extract(shifted)
	assert.False(t, ok)
}
