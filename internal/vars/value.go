package vars

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// TemplateSuffix marks a variable whose value is the formula for the variable
// named without the suffix.
const TemplateSuffix = "_Template"

// IsTemplate reports whether name carries TemplateSuffix.
func IsTemplate(name string) bool {
	return len(name) > len(TemplateSuffix) && strings.HasSuffix(name, TemplateSuffix)
}

// TemplateBase strips TemplateSuffix from name if present.
func TemplateBase(name string) string {
	if IsTemplate(name) {
		return strings.TrimSuffix(name, TemplateSuffix)
	}
	return name
}

// String renders a value the way it appears in interpolated text and command
// lines. nil renders as the empty string.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Equal compares two values without panicking on uncomparable dynamic types.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return reflect.DeepEqual(a, b)
}

// Kind tags the result of ParseToken.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	default:
		return "String"
	}
}

var floatToken = regexp.MustCompile(`^[+-]?(\d+\.\d*|\.\d+|\d+)([eE][+-]?\d+)?$`)

// ParseToken classifies a command-line token as an integer, a float or a plain
// string and returns the converted value (int64, float64 or string).
func ParseToken(s string) (any, Kind) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, KindInteger
	}
	if floatToken.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, KindFloat
		}
	}
	return s, KindString
}
