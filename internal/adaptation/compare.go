package adaptation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/abhisek/scaffold/internal/curriculum"
)

// compare applies op to a telemetry value and a threshold after coercing
// both to a common type. Numbers win over booleans, booleans over strings.
// A side that cannot be coerced to the chosen type makes the comparison false.
func compare(actual, threshold any, op curriculum.Operator) (bool, error) {
	an, aNum := toNumber(actual)
	tn, tNum := toNumber(threshold)
	if aNum || tNum {
		if !aNum || !tNum {
			return false, fmt.Errorf("cannot compare %v with %v numerically", actual, threshold)
		}
		return compareOrdered(an, tn, op)
	}

	ab, aBool := toBool(actual)
	tb, tBool := toBool(threshold)
	if aBool || tBool {
		if !aBool || !tBool {
			return false, fmt.Errorf("cannot compare %v with %v as booleans", actual, threshold)
		}
		switch op {
		case curriculum.OpEq:
			return ab == tb, nil
		case curriculum.OpNe:
			return ab != tb, nil
		default:
			return false, fmt.Errorf("operator %s is not defined for booleans", op)
		}
	}

	return compareOrdered(fmt.Sprint(actual), fmt.Sprint(threshold), op)
}

func compareOrdered[T float64 | string](a, b T, op curriculum.Operator) (bool, error) {
	switch op {
	case curriculum.OpEq:
		return a == b, nil
	case curriculum.OpNe:
		return a != b, nil
	case curriculum.OpLt:
		return a < b, nil
	case curriculum.OpLe:
		return a <= b, nil
	case curriculum.OpGt:
		return a > b, nil
	case curriculum.OpGe:
		return a >= b, nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if strings.IndexFunc(s, notDecimal) >= 0 {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// notDecimal reports runes outside a plain decimal literal. It keeps
// "nan", "inf" and hex floats on the string path.
func notDecimal(r rune) bool {
	return !strings.ContainsRune("0123456789+-.eE", r)
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
