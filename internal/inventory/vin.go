package inventory

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// VINMaxLen VIN 最大长度。超长一律拒绝，不做静默截断：
// 截断会把不同 VIN 截成一样，制造“撞号”的假唯一键。
const VINMaxLen = 17

// ValidVIN 校验 VIN：非空、不含空白、长度不超过 17。
func ValidVIN(vin string) bool {
	if vin == "" || len(vin) > VINMaxLen {
		return false
	}
	return !strings.ContainsAny(vin, " \t\r\n")
}

// SynthesizeVIN 为批量入库生成 VIN：品牌/型号前缀 + 时间戳 + 随机后缀，
// 结果保证不超过 17 位。碰撞概率极低但非零，由调用方跳过冲突行。
func SynthesizeVIN(brand, model string, now time.Time) string {
	prefix := vinPrefix(brand, 3) + vinPrefix(model, 2)
	ts := strconv.FormatInt(now.UTC().Unix(), 36)

	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)

	vin := strings.ToUpper(prefix + ts + hex.EncodeToString(suffix))
	if len(vin) > VINMaxLen {
		vin = vin[:VINMaxLen]
	}
	return vin
}

// vinPrefix 取前 n 个字母/数字，不足用 X 补齐。
func vinPrefix(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() >= n {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	for b.Len() < n {
		b.WriteByte('X')
	}
	return b.String()
}
