package conv

import "strconv"

// AsInt coerces numeric and textual values into a plain int, returning 0 when
// the value cannot be interpreted as a number.
func AsInt(value interface{}) int {
	switch actual := value.(type) {
	case int:
		return actual
	case int32:
		return int(actual)
	case int64:
		return int(actual)
	case uint64:
		return int(actual)
	case float32:
		return int(actual)
	case float64:
		return int(actual)
	case string:
		ret, err := strconv.Atoi(actual)
		if err != nil {
			return 0
		}
		return ret
	}
	return 0
}
