package ml

import "strings"

// canonSKUs are the labels the forecasting model was trained on.
var canonSKUs = []string{"Cement", "Bricks", "Blocks", "Steel"}

// skuAliases maps material names that differ from the trained labels,
// e.g. "TMT Steel": "Steel".
var skuAliases = map[string]string{}

// NormalizeSKU maps a material name onto a trained SKU label. Unknown names
// pass through unchanged so the service can answer for newly trained labels
// without a backend change.
func NormalizeSKU(input string) string {
	if alias, ok := skuAliases[input]; ok {
		return alias
	}
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, s := range canonSKUs {
		if strings.ToLower(s) == lower {
			return s
		}
	}
	return input
}
