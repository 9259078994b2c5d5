package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// 旧版本写入的 created_at 可能是不带时区的 ISO 字符串，也可能是 Unix 秒（浮点数）
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON 兼容多种 created_at 格式，无时区的时间按 UTC 处理
func (r *BuildRecord) UnmarshalJSON(data []byte) error {
	type alias BuildRecord
	aux := struct {
		*alias
		CreatedAt json.RawMessage `json:"created_at"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := parseCreatedAt(aux.CreatedAt)
	if err != nil {
		return err
	}
	r.CreatedAt = t
	return nil
}

func parseCreatedAt(raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s == "" {
			return nil, nil
		}
		for _, layout := range createdAtLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t, nil
			}
		}
		return nil, fmt.Errorf("无法解析 created_at: %q", s)
	}
	secs, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("无法解析 created_at: %s", raw)
	}
	whole, frac := math.Modf(secs)
	t := time.Unix(int64(whole), int64(frac*1e9)).UTC()
	return &t, nil
}
