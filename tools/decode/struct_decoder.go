package decode

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"linker/tools/errs"
)

type Options struct {
	// WeaklyTypedInput allows "123" -> int, 1.0 -> int64, 1700000000000 -> "1700000000000".
	WeaklyTypedInput bool
	// ErrorUnused rejects payloads carrying keys the target does not declare.
	ErrorUnused bool
}

func DefaultOptions() Options {
	return Options{WeaklyTypedInput: true}
}

// DecodeJSON decodes a raw JSON payload into T. Field names follow the `json`
// tag. An empty or null payload is ErrArgs.
func DecodeJSON[T any](raw []byte, opts ...Options) (*T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errs.ErrArgs.WrapMsg("empty payload")
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, errs.ErrArgs.WrapMsg("payload is not json", "err", err)
	}
	return Decode[T](generic, opts...)
}

// Decode maps an already-unmarshalled value (map, slice, scalar) into T.
func Decode[T any](in any, opts ...Options) (*T, error) {
	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		ErrorUnused:      cfg.ErrorUnused,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			floatToIntHook(),
			sliceAnyToSliceStringHook(),
			jsonRawStringToMapHook(),
		),
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "new decoder")
	}
	if err := dec.Decode(in); err != nil {
		return nil, errs.ErrArgs.WrapMsg("decode payload", "err", err)
	}
	return &out, nil
}

func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}

// sliceAnyToSliceStringHook converts []any into []string when the target is []string.
func sliceAnyToSliceStringHook() mapstructure.DecodeHookFunc {
	strSlice := reflect.TypeOf([]string(nil))
	return func(from, to reflect.Type, data any) (any, error) {
		if to != strSlice {
			return data, nil
		}
		src, ok := data.([]any)
		if !ok {
			return data, nil
		}
		out := make([]string, 0, len(src))
		for _, it := range src {
			switch v := it.(type) {
			case string:
				out = append(out, v)
			default:
				b, _ := json.Marshal(v)
				out = append(out, string(b))
			}
		}
		return out, nil
	}
}

// jsonRawStringToMapHook accepts a JSON object encoded as a string where a map is expected.
func jsonRawStringToMapHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.String || to != reflect.Map {
			return data, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(data.(string)), &m); err == nil {
			return m, nil
		}
		return data, nil
	}
}
