package source

import (
	"fmt"
	"sort"
)

// Elections maps built-in election keys to the Virginia Department of
// Elections polling-location workbooks.
var Elections = map[string]string{
	"2025_november_general": "https://www.elections.virginia.gov/media/registration-statistics/2025-November-General-Election-Day-Polling-Locations-20250912.xlsx",
	"2024_november_general": "https://www.elections.virginia.gov/media/registration-statistics/2024-November-General-Election-Day-Polling-Locations-(10-9-24).xlsx",
	"2025_june_democratic":  "https://www.elections.virginia.gov/media/registration-statistics/2025-June-Democratic-Primary-Election-Day-Polling-Locations-(5-28-25).xlsx",
	"2025_june_republican":  "https://www.elections.virginia.gov/media/registration-statistics/2025-June-Republican-Primary-Election-Day-Polling-Locations-(5-28-25).xlsx",
}

// ElectionKeys returns the built-in election keys in sorted order.
func ElectionKeys() []string {
	keys := make([]string, 0, len(Elections))
	for k := range Elections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Locate returns the location to fetch. An explicit source wins over the
// election key.
func Locate(election, src string) (string, error) {
	if src != "" {
		return src, nil
	}
	u, ok := Elections[election]
	if !ok {
		return "", fmt.Errorf("unknown election %q", election)
	}
	return u, nil
}
