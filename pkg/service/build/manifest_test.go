package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
)

func TestInstallManifest(t *testing.T) {
	r := &model.BuildRecord{
		UploadID:      "abc",
		Platform:      constant.PlatformIOS,
		BundleID:      "com.x.app",
		AppTitle:      "X",
		BundleVersion: "1.2",
	}
	data, err := InstallManifest(r, "https://dist.example.com/")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<?xml")

	var decoded otaManifest
	_, err = plist.Unmarshal(data, &decoded)
	require.NoError(t, err)
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, "https://dist.example.com/api/uploads/abc/app.ipa", decoded.Items[0].Assets[0].URL)
	assert.Equal(t, "com.x.app", decoded.Items[0].Metadata.BundleIdentifier)
	assert.Equal(t, "software", decoded.Items[0].Metadata.Kind)

	r.Platform = constant.PlatformAndroid
	_, err = InstallManifest(r, "https://dist.example.com")
	assert.ErrorIs(t, err, constant.ErrNotFound)
}

func TestInstallURL(t *testing.T) {
	ios := &model.BuildRecord{UploadID: "abc", Platform: constant.PlatformIOS}
	assert.Equal(t,
		"itms-services://?action=download-manifest&url=https%3A%2F%2Fd.example%2Fget%2Fabc%2Fapp.plist",
		InstallURL(ios, "https://d.example/"))

	android := &model.BuildRecord{UploadID: "def", Platform: constant.PlatformAndroid}
	assert.Equal(t, "https://d.example/api/uploads/def/app.apk", InstallURL(android, "https://d.example"))
}
