package module

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 原始报文的字段取值辅助
// 各经销商后台导出的字段命名大小写不一、数字和日期经常是字符串，
// 这里统一做宽容解析：键先归一化（小写、去下划线），值按目标类型转换

// ==================== RecordError 记录级校验失败 ====================

// RecordError 单条记录的校验失败
// 只丢弃这一条记录，不中断整页处理
type RecordError struct {
	Field  string
	Reason string
}

func (e *RecordError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("记录字段 %s 无效: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("记录缺少必填字段: %s", e.Field)
}

// missingKey 自然键缺失
func missingKey(field string) error {
	return &RecordError{Field: field}
}

// ==================== 键归一化 ====================

// flatten 归一化原始报文的键：小写并去掉下划线和空格
// "noShippingList"、"no_shipping_list"、"NO_SHIPPING_LIST" 都落到 "noshippinglist"
func flatten(raw map[string]interface{}) map[string]interface{} {
	f := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		key := strings.ToLower(k)
		key = strings.ReplaceAll(key, "_", "")
		key = strings.ReplaceAll(key, " ", "")
		f[key] = v
	}
	return f
}

// ==================== 取值辅助 ====================

// pickString 按候选键取字符串，数字值转为十进制文本
func pickString(f map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := f[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return strings.TrimSpace(val)
		case float64:
			// JSON 数字统一是 float64，整数值不带小数点输出
			if val == float64(int64(val)) {
				return strconv.FormatInt(int64(val), 10)
			}
			return strconv.FormatFloat(val, 'f', -1, 64)
		case json.Number:
			return val.String()
		case bool:
			return strconv.FormatBool(val)
		}
	}
	return ""
}

// requireString 取必填字符串，缺失或空值返回 RecordError
func requireString(f map[string]interface{}, field string, keys ...string) (string, error) {
	s := pickString(f, keys...)
	if s == "" {
		return "", missingKey(field)
	}
	return s, nil
}

// pickInt 宽容取整数，字符串会先去空格再解析
func pickInt(f map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		v, ok := f[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			return int(val)
		case int:
			return val
		case int64:
			return int(val)
		case json.Number:
			if n, err := val.Int64(); err == nil {
				return int(n)
			}
		case string:
			s := strings.TrimSpace(val)
			if n, err := strconv.Atoi(s); err == nil {
				return n
			}
			// "3.0" 这类形态
			if fv, err := strconv.ParseFloat(s, 64); err == nil {
				return int(fv)
			}
		}
	}
	return 0
}

// pickDecimal 宽容取金额，解析失败落回 0
func pickDecimal(f map[string]interface{}, keys ...string) decimal.Decimal {
	for _, key := range keys {
		v, ok := f[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			return decimal.NewFromFloat(val)
		case json.Number:
			if d, err := decimal.NewFromString(val.String()); err == nil {
				return d
			}
		case string:
			s := strings.TrimSpace(val)
			if s == "" {
				continue
			}
			// 上游偶尔带千分位
			s = strings.ReplaceAll(s, ",", "")
			if d, err := decimal.NewFromString(s); err == nil {
				return d
			}
		}
	}
	return decimal.Zero
}

// timeLayouts 上游出现过的日期格式，按命中概率排序
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// pickTime 宽容取时间，支持常见文本格式和 unix 秒
func pickTime(f map[string]interface{}, keys ...string) *time.Time {
	for _, key := range keys {
		v, ok := f[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			s := strings.TrimSpace(val)
			if s == "" {
				continue
			}
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return &t
				}
			}
		case float64:
			if val > 0 {
				t := time.Unix(int64(val), 0)
				return &t
			}
		}
	}
	return nil
}

// pickList 取嵌套的行项目数组
func pickList(f map[string]interface{}, keys ...string) []map[string]interface{} {
	for _, key := range keys {
		v, ok := f[key]
		if !ok || v == nil {
			continue
		}
		items, ok := v.([]interface{})
		if !ok {
			continue
		}
		list := make([]map[string]interface{}, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok {
				list = append(list, m)
			}
		}
		return list
	}
	return nil
}

// encodeRaw 保留原始报文快照
func encodeRaw(raw map[string]interface{}) datatypes.JSON {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
