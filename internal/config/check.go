package config

import "strings"

// CheckKey describes one environment key inspected by Check.
type CheckKey struct {
	Name     string
	Aliases  []string
	Required bool
}

// CheckResult is the outcome for a single key.
type CheckResult struct {
	Key      string
	Present  bool
	Length   int
	Required bool
}

// CheckKeys lists the credentials the backend needs at runtime. Required keys
// fail the check when absent; the rest are reported for visibility only.
var CheckKeys = []CheckKey{
	{Name: "NEXT_PUBLIC_SUPABASE_URL", Aliases: []string{"SUPABASE_URL"}, Required: true},
	{Name: "SUPABASE_SERVICE_ROLE_KEY", Required: true},
	{Name: "DATABASE_URL", Required: true},
	{Name: "SMSBAO_USER", Required: true},
	{Name: "SMSBAO_PASS", Required: true},
	{Name: "GLM_API_KEY"},
	{Name: "XUNHU_APP_ID"},
	{Name: "XUNHU_APP_SECRET"},
	{Name: "SHADOW_PASSWORD_SALT"},
}

// Check inspects keys through lookup (usually os.LookupEnv) without reading
// any other configuration. The returned error is a *MissingError naming every
// absent required key, or nil.
func Check(keys []CheckKey, lookup func(string) (string, bool)) ([]CheckResult, error) {
	results := make([]CheckResult, 0, len(keys))
	var missing []string
	for _, k := range keys {
		val := ""
		for _, name := range append([]string{k.Name}, k.Aliases...) {
			if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
				val = v
				break
			}
		}
		r := CheckResult{Key: k.Name, Present: val != "", Length: len(val), Required: k.Required}
		results = append(results, r)
		if !r.Present && k.Required {
			missing = append(missing, k.Name)
		}
	}
	if len(missing) > 0 {
		return results, &MissingError{Keys: missing}
	}
	return results, nil
}
