package service

// mergeValues 按顺序深度合并 values，后面的覆盖前面的；嵌套 map 递归合并，其余类型整体替换。
// 输入不会被修改。
func mergeValues(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for _, layer := range layers {
		mergeInto(merged, layer)
	}
	return merged
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		if !srcIsMap {
			dst[k] = v
			continue
		}
		dstMap, dstIsMap := dst[k].(map[string]any)
		if !dstIsMap {
			dstMap = map[string]any{}
		} else {
			dstMap = copyMap(dstMap)
		}
		mergeInto(dstMap, srcMap)
		dst[k] = dstMap
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
