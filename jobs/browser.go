package jobs

import "strings"

// Browser is a canonical browser identifier with its display name.
type Browser struct {
	ID   string
	Name string
}

// Browsers lists the canonical browsers in display order.
var Browsers = []Browser{
	{ID: "android", Name: "Android"},
	{ID: "chrome", Name: "Chrome"},
	{ID: "edge", Name: "Edge"},
	{ID: "firefox", Name: "Firefox"},
	{ID: "ie", Name: "IE"},
	{ID: "ios", Name: "iOS"},
	{ID: "opera", Name: "Opera"},
	{ID: "safari", Name: "Safari"},
}

// browserAliases maps upstream browser names to canonical IDs.
var browserAliases = map[string]string{
	"googlechrome":      "chrome",
	"google chrome":     "chrome",
	"microsoftedge":     "edge",
	"microsoft edge":    "edge",
	"internet explorer": "ie",
	"iexplore":          "ie",
	"iphone":            "ios",
	"ipad":              "ios",
	"mobile safari":     "ios",
	"ff":                "firefox",
}

// LookupBrowser returns the canonical browser with the given ID.
func LookupBrowser(id string) (Browser, bool) {
	for _, b := range Browsers {
		if b.ID == id {
			return b, true
		}
	}
	return Browser{}, false
}

// CanonicalBrowser maps an upstream browser name to a canonical ID.
func CanonicalBrowser(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := browserAliases[name]; ok {
		return alias, true
	}
	if _, ok := LookupBrowser(name); ok {
		return name, true
	}
	return "", false
}

// BrowserRank returns the display position of a browser ID. Unknown IDs
// sort after every canonical browser.
func BrowserRank(id string) int {
	for i, b := range Browsers {
		if b.ID == id {
			return i
		}
	}
	return len(Browsers)
}
