package browser

import (
	"strings"
)

// By names the strategy used to resolve a Locator
type By string

const (
	ByID    By = "id"
	ByName  By = "name"
	ByCSS   By = "css"
	ByXPath By = "xpath"
)

// ParseBy converts a user-supplied selector kind into a By
func ParseBy(s string) (By, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "id":
		return ByID, nil
	case "name":
		return ByName, nil
	case "css", "css_selector", "css selector":
		return ByCSS, nil
	case "xpath":
		return ByXPath, nil
	default:
		return "", Errorf(KindInvalid, "parse selector kind", "unsupported selector kind %q", s)
	}
}

// Locator identifies elements on the current page
type Locator struct {
	By    By
	Value string
}

// ID locates elements by their id attribute
func ID(v string) Locator { return Locator{By: ByID, Value: v} }

// Name locates elements by their name attribute
func Name(v string) Locator { return Locator{By: ByName, Value: v} }

// CSS locates elements with a CSS selector
func CSS(v string) Locator { return Locator{By: ByCSS, Value: v} }

// XPath locates elements with an XPath expression
func XPath(v string) Locator { return Locator{By: ByXPath, Value: v} }

func (l Locator) String() string {
	return string(l.By) + "=" + l.Value
}

// CSSSelector returns a CSS selector equivalent to l. XPath locators have none.
func (l Locator) CSSSelector() (string, bool) {
	switch l.By {
	case ByID:
		return "[id=" + cssString(l.Value) + "]", true
	case ByName:
		return "[name=" + cssString(l.Value) + "]", true
	case ByCSS:
		return l.Value, true
	default:
		return "", false
	}
}

func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}
