package inspect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// testdata 下的 APK 由 aapt 生成的 AndroidManifest.xml 与 resources.arsc 打包而成：
//   fwmeasure.apk                    标签指向资源表中的字符串
//   fwmeasure-unresolved-label.apk   资源表为空，标签引用无法解析
func readAPK(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return raw
}

func TestInspect_Android(t *testing.T) {
	raw := readAPK(t, "fwmeasure.apk")

	rec, err := fixedInspector().Inspect(constant.PlatformAndroid, raw)
	require.NoError(t, err)
	assert.Equal(t, constant.PlatformAndroid, rec.Platform)
	assert.Equal(t, "net.sorablue.shogo.FWMeasure", rec.BundleID)
	assert.Equal(t, "テスト版", rec.BundleVersion)
	require.NotNil(t, rec.VersionCode)
	assert.Equal(t, int64(1), *rec.VersionCode)
	assert.Nil(t, rec.BuildNumber)
	assert.Equal(t, "花火距離計算", rec.AppTitle)
	assert.Equal(t, int64(len(raw)), rec.FileSize)
	assert.Equal(t, UploadID(raw), rec.UploadID)
}

func TestInspect_Android_UnresolvedLabelFallsBackToBundleID(t *testing.T) {
	rec, err := fixedInspector().Inspect(constant.PlatformAndroid, readAPK(t, "fwmeasure-unresolved-label.apk"))
	require.NoError(t, err)
	assert.Equal(t, "net.sorablue.shogo.FWMeasure", rec.BundleID)
	assert.Equal(t, "net.sorablue.shogo.FWMeasure", rec.AppTitle)
	require.NotNil(t, rec.VersionCode)
	assert.Equal(t, int64(1), *rec.VersionCode)
}

func TestInspect_Android_SameBytesSameUploadID(t *testing.T) {
	first, err := fixedInspector().Inspect(constant.PlatformAndroid, readAPK(t, "fwmeasure.apk"))
	require.NoError(t, err)
	second, err := NewPackageInspector().Inspect(constant.PlatformAndroid, readAPK(t, "fwmeasure.apk"))
	require.NoError(t, err)
	assert.Equal(t, first.UploadID, second.UploadID)

	// 内容不同的 APK 得到不同的 upload_id
	other, err := fixedInspector().Inspect(constant.PlatformAndroid, readAPK(t, "fwmeasure-unresolved-label.apk"))
	require.NoError(t, err)
	assert.NotEqual(t, first.UploadID, other.UploadID)
}
