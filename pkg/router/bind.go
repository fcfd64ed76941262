package router

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// bindQuery fills the request struct from url query parameters, matching
// fields by their json tag.
func bindQuery(r *http.Request, req any) error {
	value := reflect.ValueOf(req).Elem()
	if value.Kind() != reflect.Struct {
		return fmt.Errorf("cannot bind query into %T", req)
	}

	query := r.URL.Query()
	for i := 0; i < value.NumField(); i++ {
		field := value.Type().Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}

		if !query.Has(name) {
			continue
		}

		raw := query.Get(name)
		switch field.Type.Kind() {
		case reflect.String:
			value.Field(i).SetString(raw)

		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q of %s", raw, name)
			}
			value.Field(i).SetInt(n)

		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q of %s", raw, name)
			}
			value.Field(i).SetUint(n)

		case reflect.Bool:
			// Postback providers send booleans as 0/1.
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("invalid value %q of %s", raw, name)
			}
			value.Field(i).SetBool(b)

		default:
			return fmt.Errorf("unsupported query field %s", name)
		}
	}

	return nil
}
