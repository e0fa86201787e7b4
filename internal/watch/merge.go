package watch

// mergeMaps overlays src onto dst in place. The remote API sometimes sends
// partial documents where omitted state surfaces as explicit nulls; a null
// never erases a value dst already holds. Nested maps merge recursively,
// everything else (lists included) is overwritten wholesale, which keeps
// replaying the same event idempotent.
func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		if value == nil {
			if _, exists := dst[key]; exists {
				continue
			}
			dst[key] = nil
			continue
		}
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
}
