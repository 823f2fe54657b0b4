package handler

// normalizeAnswer accepts the three answer shapes: text, a list of texts, or
// a boolean. JSON lists arrive as []any and are narrowed to []string.
func normalizeAnswer(v any) (any, bool) {
	switch a := v.(type) {
	case string, bool:
		return a, true
	case []string:
		return a, true
	case []any:
		out := make([]string, len(a))
		for i, item := range a {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
