package valid

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

/*
 * Text coercion for messages.
 *
 * Generated messages splice attempted values and non-literal rule arguments
 * into text. Stringify is lenient: every value has a text form.
 *
 *   - nil (including typed nil pointers): "null"
 *   - pointers: the pointee
 *   - floats: shortest representation, no exponent for ordinary magnitudes
 *   - time.Time: RFC 3339
 *   - Stringer / error: their own text
 *   - anything else: fmt %v
 */

// Stringify renders v for a message.
func Stringify(v any) string {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "null"
	}
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return Stringify(rv.Elem().Interface())
	}
	return fmt.Sprintf("%v", v)
}
