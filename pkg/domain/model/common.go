/*
 * @Description: settings.value 列使用的 JSON 对象类型
 * @Author: 安知鱼
 * @Date: 2025-07-12 17:41:31
 * @LastEditTime: 2026-04-03 10:12:45
 * @LastEditors: 安知鱼
 */
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap 以 JSON 文本形式存入 settings.value，三种方言都按 TEXT 处理
type JSONMap map[string]interface{}

// Value 实现 driver.Valuer。写入 string 而不是 []byte，避免 postgres 把它当成 bytea。
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner，空值与空串都视为空对象
func (j *JSONMap) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = JSONMap{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("JSONMap 不支持的扫描类型: %T", value)
	}
	if len(raw) == 0 {
		*j = JSONMap{}
		return nil
	}
	m := JSONMap{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("解析 JSONMap 失败: %w", err)
	}
	*j = m
	return nil
}

// Clone 浅拷贝，值均为 JSON 标量时等同深拷贝
func (j JSONMap) Clone() JSONMap {
	out := make(JSONMap, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}

// String 取字符串字段，不存在或类型不符时返回 false
func (j JSONMap) String(key string) (string, bool) {
	v, ok := j[key].(string)
	return v, ok
}
