// Package payment signs requests for, and verifies callbacks from, the Xunhu
// (虎皮椒) payment gateway, and knows how much each purchasable plan grants.
package payment

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// HashField is the parameter that carries the signature itself.
const HashField = "hash"

// GenerateHash signs fields with secret.
//
// Keys are sorted ascending; keys named "hash" and values that are nil or the
// empty string are skipped; the rest are joined as key=value with '&', then
// "key=<secret>" is appended and the whole string is MD5-hashed. The result
// is the lowercase hex digest.
func GenerateHash(fields map[string]any, secret string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if k == HashField || v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		s := FormatValue(fields[k])
		if s == "" {
			continue
		}
		pairs = append(pairs, k+"="+s)
	}
	pairs = append(pairs, "key="+secret)

	sum := md5.Sum([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether fields[hash] matches the signature of the remaining
// fields. The comparison runs in constant time.
func Verify(fields map[string]any, secret string) bool {
	got := strings.ToLower(strings.TrimSpace(FormatValue(fields[HashField])))
	if got == "" {
		return false
	}
	want := GenerateHash(fields, secret)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// FormatValue renders v the way the gateway expects to see it in the signed
// string: integers in base 10 and floats without exponent or padding, so 1
// stays "1" and 0.1 stays "0.1".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
