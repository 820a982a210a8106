package conf

import "github.com/knadh/koanf/maps"

// Namespace flattens defaults and moves every key below ns, yielding
// the dot-delimited keys the defaults layer of Parse expects.
func Namespace(ns string, defaults map[string]any) map[string]any {
	flat, _ := maps.Flatten(defaults, nil, ".")

	out := make(map[string]any, len(flat))
	for key, val := range flat {
		out[ns+"."+key] = val
	}

	return out
}

// Merge combines flat default maps. Keys of later maps win.
func Merge(defaults ...map[string]any) map[string]any {
	size := 0
	for _, m := range defaults {
		size += len(m)
	}

	merged := make(map[string]any, size)
	for _, m := range defaults {
		for key, val := range m {
			merged[key] = val
		}
	}

	return merged
}
