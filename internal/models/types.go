package models

import (
	"database/sql/driver"
	"encoding/json"
)

// StringArray 字符串数组类型，JSON 文本入库
type StringArray []string

// Value 实现 driver.Valuer 接口
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner 接口；非法内容按空数组处理
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = StringArray{}
		return nil
	}
	if err := json.Unmarshal(bytes, s); err != nil {
		*s = StringArray{}
	}
	return nil
}

// UintArray 无符号整数数组类型，JSON 文本入库
type UintArray []uint

// Value 实现 driver.Valuer 接口
func (u UintArray) Value() (driver.Value, error) {
	if u == nil {
		return nil, nil
	}
	return json.Marshal(u)
}

// Scan 实现 sql.Scanner 接口；非法内容按空数组处理
func (u *UintArray) Scan(value interface{}) error {
	if value == nil {
		*u = UintArray{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*u = UintArray{}
		return nil
	}
	if err := json.Unmarshal(bytes, u); err != nil {
		*u = UintArray{}
	}
	return nil
}
