/*
 * @Description: 安装包平台定义
 * @Author: 安知鱼
 * @Date: 2026-03-02 10:16:30
 * @LastEditTime: 2026-03-18 22:07:11
 * @LastEditors: 安知鱼
 */
package constant

import (
	"fmt"
	"strings"
)

// Platform 安装包所属平台
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// AllPlatforms 按检测顺序列出所有平台
var AllPlatforms = []Platform{PlatformIOS, PlatformAndroid}

// AppFileName 返回该平台在存储目录中使用的固定安装包文件名
func (p Platform) AppFileName() string {
	switch p {
	case PlatformIOS:
		return "app.ipa"
	case PlatformAndroid:
		return "app.apk"
	default:
		return ""
	}
}

// Valid 判断平台是否受支持
func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// ParsePlatform 将字符串解析为 Platform
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: 不支持的平台 %q", ErrBadRequest, s)
	}
	return p, nil
}

// PlatformFromFilename 根据上传文件的扩展名判断平台 (.ipa -> ios, .apk -> android)
func PlatformFromFilename(filename string) (Platform, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".ipa"):
		return PlatformIOS, nil
	case strings.HasSuffix(lower, ".apk"):
		return PlatformAndroid, nil
	}
	return "", fmt.Errorf("%w: 仅支持 .ipa 与 .apk 文件", ErrInvalidPackage)
}
