package configdef

import (
	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
)

// Definition 定义了单个配置项的默认值。
type Definition struct {
	Key     constant.SettingKey
	Value   model.JSONMap
	Comment string
}

// UserDefinition 定义了首次启动时创建的默认用户。
type UserDefinition struct {
	Username string
	Password string
	Role     constant.UserRole
}

// AllSettings 是系统中所有配置项的"单一事实来源"，首次启动时写入 settings 表
var AllSettings = []Definition{
	{
		Key:     constant.KeyAppSettings,
		Value:   model.JSONMap{"duplicate_upload_policy": string(constant.DuplicatePolicyError)},
		Comment: "全局应用配置，duplicate_upload_policy 取值 error / replace",
	},
}

// DefaultOwner users 表为空时创建的拥有者账号，首次登录后应立即修改密码
var DefaultOwner = UserDefinition{
	Username: "owner",
	Password: "owner123",
	Role:     constant.RoleOwner,
}
