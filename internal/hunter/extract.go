package hunter

import "encoding/json"

// candidateKeys are the places marketplaces tend to put their task arrays.
var candidateKeys = []string{"tasks", "jobs", "campaigns", "data", "results", "items", "available"}

// ExtractCandidates pulls task-shaped objects out of a free-form JSON
// response. Accepted shapes: a top-level array of objects, or an object with
// an array under one of the usual collection keys (searched one level deep).
func ExtractCandidates(body []byte) []map[string]any {
	var top any
	if err := json.Unmarshal(body, &top); err != nil {
		return nil
	}

	switch v := top.(type) {
	case []any:
		return objectsOf(v)
	case map[string]any:
		for _, key := range candidateKeys {
			if arr, ok := v[key].([]any); ok {
				if objs := objectsOf(arr); len(objs) > 0 {
					return objs
				}
			}
		}
		// One level of nesting, e.g. {"response": {"jobs": [...]}}.
		for _, inner := range v {
			m, ok := inner.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range candidateKeys {
				if arr, ok := m[key].([]any); ok {
					if objs := objectsOf(arr); len(objs) > 0 {
						return objs
					}
				}
			}
		}
	}
	return nil
}

func objectsOf(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
