package helm

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
	"helm.sh/helm/v3/pkg/strvals"
)

// Values represents helm chart values as a map.
type Values = map[string]any

// ParseSetArgs turns `--set` style key=value pairs into nested values.
// Later pairs win.
func ParseSetArgs(args []string) (Values, error) {
	values := Values{}
	for _, arg := range args {
		if err := strvals.ParseInto(arg, values); err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", arg, err)
		}
	}
	return values, nil
}

// MergeValues deep-merges maps left to right. Nested maps are merged, any
// other value in a later map replaces the earlier one.
func MergeValues(maps ...Values) Values {
	result := Values{}
	for _, m := range maps {
		mergeInto(result, m)
	}
	return result
}

func mergeInto(dst, src Values) {
	for k, v := range src {
		srcMap, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		dstMap, ok := dst[k].(map[string]any)
		if !ok {
			dstMap = Values{}
		}
		mergeInto(dstMap, srcMap)
		dst[k] = dstMap
	}
}

// ToYAML renders values for the install log.
func ToYAML(v Values) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode values to YAML: %w", err)
	}
	return buf.Bytes(), nil
}
