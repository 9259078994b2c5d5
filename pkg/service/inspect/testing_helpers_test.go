package inspect

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

// buildZip 生成内存中的 zip 压缩包
func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildIPA 生成仅包含 Info.plist 的 IPA
func buildIPA(t *testing.T, info map[string]any, format int) []byte {
	t.Helper()
	data, err := plist.Marshal(info, format)
	require.NoError(t, err)
	return buildZip(t, map[string][]byte{
		"Payload/Demo.app/Info.plist": data,
		"Payload/Demo.app/Demo":       []byte("binary"),
	})
}
