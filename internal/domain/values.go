package domain

import "fmt"

// NormalizeKeys 把 YAML 解出的 map[any]any 递归转换为 map[string]any，
// 非字符串键按 fmt.Sprint 转成字符串，保证结果可以直接 JSON 编码。
func NormalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = NormalizeKeys(child)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = NormalizeKeys(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = NormalizeKeys(child)
		}
		return t
	default:
		return v
	}
}

func normalizeValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return NormalizeKeys(m).(map[string]any)
}
