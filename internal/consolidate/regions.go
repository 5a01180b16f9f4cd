package consolidate

import "strings"

// regionAliases folds market-region spellings onto canonical names.
// "any" is the wildcard that matches every region.
var regionAliases = map[string]string{
	"eu":                   "europe",
	"emea":                 "europe",
	"european union":       "europe",
	"apac":                 "apac",
	"asia pacific":         "apac",
	"rest of asia pacific": "apac",
	"china":                "greater china",
	"prc":                  "greater china",
	"greater china":        "greater china",
	"hong kong":            "greater china",
	"taiwan":               "greater china",
	"macau":                "greater china",
	"usa":                  "americas",
	"us":                   "americas",
	"united states":        "americas",
	"north america":        "americas",
	"america":              "americas",
	"americas":             "americas",
	"all":                  "any",
	"global":               "any",
	"world":                "any",
	"worldwide":            "any",
}

// NormalizeRegion maps a region label onto its canonical form. Unknown
// labels pass through lowercased so two unknown spellings still compare.
func NormalizeRegion(region string) string {
	normalized := strings.ToLower(strings.TrimSpace(region))
	if canonical, ok := regionAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// RegionsCompatible reports whether evidence from pairRegion is usable for
// a strategy targeting strategyRegion. An item is dropped only when both
// sides normalize to a specific (non-wildcard) region and they differ;
// an absent region on either side keeps the item.
func RegionsCompatible(strategyRegion, pairRegion string) bool {
	if strategyRegion == "" || pairRegion == "" {
		return true
	}
	g := NormalizeRegion(strategyRegion)
	p := NormalizeRegion(pairRegion)
	return p == "any" || g == "any" || g == p
}
