// Package normalizer converts raw, provider-specific payment callbacks into
// the canonical NormalizedResult the reconciliation engine consumes. Each
// provider family gets its own implementation; the routing layer selects the
// normalizer by endpoint, never by sniffing the payload shape.
package normalizer

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/payhubprime/payhub-gobackend/internal/models"
)

// ErrMalformedCallback means the payload is missing its required
// discriminator field. The handler still acknowledges the provider.
var ErrMalformedCallback = errors.New("malformed callback payload")

type Normalizer interface {
	// Provider returns the payment_method tag this normalizer handles.
	Provider() string
	Normalize(payload []byte) (*models.NormalizedResult, error)
}

// nested walks a decoded JSON object along the given keys.
func nested(m map[string]interface{}, keys ...string) (interface{}, bool) {
	var cur interface{} = m
	for _, k := range keys {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = obj[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func nestedString(m map[string]interface{}, keys ...string) string {
	v, ok := nested(m, keys...)
	if !ok {
		return ""
	}
	return toString(v)
}

// toString renders a JSON scalar as a string. Providers are inconsistent
// about whether codes arrive as numbers or strings.
func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// toFloat parses a JSON scalar as a float, tolerating string-encoded numbers.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
