package apiclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// EncodeQuery renders params as a query string. Nil values are skipped,
// slices repeat the key and nested objects are sent as JSON text.
func EncodeQuery(params map[string]any) string {
	values := url.Values{}
	for k, v := range params {
		switch tv := v.(type) {
		case nil:
		case []any:
			for _, item := range tv {
				if item != nil {
					values.Add(k, scalar(item))
				}
			}
		case []string:
			for _, item := range tv {
				values.Add(k, item)
			}
		default:
			values.Set(k, scalar(v))
		}
	}
	return values.Encode()
}

func scalar(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case json.Number:
		return tv.String()
	case bool:
		return strconv.FormatBool(tv)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case int:
		return strconv.Itoa(tv)
	case int64:
		return strconv.FormatInt(tv, 10)
	case map[string]any, []any:
		b, err := json.Marshal(tv)
		if err != nil {
			return fmt.Sprint(tv)
		}
		return string(b)
	default:
		return fmt.Sprint(tv)
	}
}
