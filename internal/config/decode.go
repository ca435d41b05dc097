package config

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// decodeHook extends viper's default hooks so that env strings such as
// "30,60,90" decode into []int and "a,b" into []string.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		splitListHook(),
	)
}

func splitListHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []interface{}{}, nil
		}
		parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
		switch to.Elem().Kind() {
		case reflect.Int:
			out := make([]int, 0, len(parts))
			for _, p := range parts {
				n, err := strconv.Atoi(p)
				if err != nil {
					return nil, err
				}
				out = append(out, n)
			}
			return out, nil
		case reflect.String:
			return parts, nil
		default:
			return data, nil
		}
	}
}
