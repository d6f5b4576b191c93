// Package cf binds loosely typed configuration maps (as produced by a YAML decoder) onto
// structs whose exported fields carry `cf:"key"` tags.
package cf

import (
	"fmt"
	"github.com/pkg/errors"
	"reflect"
	"sort"
)

func Load(data map[string]interface{}, cf interface{}) error {
	cfV := reflect.ValueOf(cf)
	if cfV.Kind() != reflect.Ptr || cfV.IsNil() {
		return errors.Errorf("cf target [%T] not a non-nil pointer", cf)
	}
	cfV = cfV.Elem()
	if cfV.Kind() != reflect.Struct {
		return errors.Errorf("cf type [%s] not struct", cfV.Type())
	}
	for i := 0; i < cfV.NumField(); i++ {
		field := cfV.Field(i)
		if !field.CanSet() {
			continue
		}
		key := keyName(cfV.Type().Field(i))
		v, found := data[key]
		if !found {
			continue
		}
		if err := set(key, field, v); err != nil {
			return err
		}
	}
	return nil
}

func set(key string, field reflect.Value, v interface{}) error {
	switch field.Kind() {
	case reflect.Int:
		if j, ok := v.(int); ok {
			field.SetInt(int64(j))
			return nil
		}

	case reflect.Float64:
		switch f := v.(type) {
		case float64:
			field.SetFloat(f)
			return nil
		case int:
			field.SetFloat(float64(f))
			return nil
		}

	case reflect.Bool:
		if b, ok := v.(bool); ok {
			field.SetBool(b)
			return nil
		}

	case reflect.String:
		if s, ok := v.(string); ok {
			field.SetString(s)
			return nil
		}

	case reflect.Map:
		if field.Type() != reflect.TypeOf(map[string]interface{}{}) {
			return errors.Errorf("unsupported field type [%s]", field.Type())
		}
		if m, ok := CleanUpMapValue(v).(map[string]interface{}); ok {
			field.Set(reflect.ValueOf(m))
			return nil
		}

	default:
		return errors.Errorf("unsupported field type [%s]", field.Type())
	}
	return errors.Errorf("field '%s' type mismatch, got [%s], expected [%s]", key, reflect.TypeOf(v), field.Type())
}

func Dump(label string, cf interface{}) string {
	cfV := reflect.ValueOf(cf)
	if cfV.Kind() == reflect.Ptr {
		cfV = cfV.Elem()
	}
	if cfV.Kind() != reflect.Struct {
		return ""
	}
	out := label + " {\n"
	format := fmt.Sprintf("\t%%-%ds %%v\n", maxKeyLength(cfV))
	for i := 0; i < cfV.NumField(); i++ {
		if cfV.Field(i).CanInterface() {
			key := keyName(cfV.Type().Field(i))
			out += fmt.Sprintf(format, key, dumpValue(cfV.Field(i)))
		}
	}
	out += "}\n"
	return out
}

func dumpValue(v reflect.Value) interface{} {
	if m, ok := v.Interface().(map[string]interface{}); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ", "
			}
			out += fmt.Sprintf("%s: %v", k, m[k])
		}
		return out + "}"
	}
	return v.Interface()
}

func keyName(v reflect.StructField) string {
	key := v.Name
	tag := v.Tag.Get("cf")
	if tag != "" {
		key = tag
	}
	return key
}

func maxKeyLength(cfV reflect.Value) int {
	maxKeyLength := 0
	for i := 0; i < cfV.NumField(); i++ {
		if !cfV.Field(i).CanInterface() {
			continue
		}
		keyLength := len(keyName(cfV.Type().Field(i)))
		if keyLength > maxKeyLength {
			maxKeyLength = keyLength
		}
	}
	return maxKeyLength
}
