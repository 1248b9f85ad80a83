package util

import (
	"strings"
	"time"
)

// WatermarkLayout 水位统一使用带毫秒的 UTC ISO-8601
const WatermarkLayout = "2006-01-02T15:04:05.000Z"

var TimeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	WatermarkLayout,
	"2006-01-02T15:04:05 -07:00",
	"2006-01-02T15:04:05-07:00",
	time.DateTime,
	"2006/01/02 15:04:05",
	time.DateOnly,
}

// FormatWatermark 格式化成水位字符串
func FormatWatermark(t time.Time) string {
	return t.UTC().Format(WatermarkLayout)
}

// ParseTime 依次尝试常见格式，没有时区的按 UTC 处理
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range TimeFormats {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}
