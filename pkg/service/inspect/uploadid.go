package inspect

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// UploadID 由安装包内容决定：hex(BLAKE3-256(raw))，可直接用作目录名
func UploadID(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
