package locator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

// Kind tags a strategy variant
type Kind int

const (
	KindRole Kind = iota
	KindLabel
	KindAttribute
	KindClass
	KindCSS
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindRole:
		return "role"
	case KindLabel:
		return "label"
	case KindAttribute:
		return "attribute"
	case KindClass:
		return "class"
	case KindCSS:
		return "css"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Strategy is one candidate way of finding an element. Strategies are plain
// values so a Spec can be inspected and printed.
type Strategy struct {
	Kind     Kind
	Role     string
	Name     *regexp.Regexp // accessible name or label text filter
	Attr     string
	Value    string
	Class    string
	Selector string
}

// implicit ARIA roles of native elements
var roleSelectors = map[string]string{
	"button":   `button, [role="button"], input[type="submit"], input[type="button"]`,
	"link":     `a[href], [role="link"]`,
	"checkbox": `input[type="checkbox"], [role="checkbox"]`,
	"textbox":  `input:not([type]), input[type="text"], input[type="email"], input[type="search"], textarea, [role="textbox"]`,
	"dialog":   `dialog, [role="dialog"], [role="alertdialog"]`,
	"radio":    `input[type="radio"], [role="radio"]`,
	"heading":  `h1, h2, h3, h4, h5, h6, [role="heading"]`,
	"list":     `ul, ol, [role="list"]`,
	"listitem": `li, [role="listitem"]`,
}

// ByRole matches elements with the given ARIA role (explicit or implicit)
// whose accessible name matches the case-insensitive pattern. An empty
// pattern matches any name.
func ByRole(role, name string) Strategy {
	return Strategy{Kind: KindRole, Role: role, Name: pattern(name)}
}

// ByLabel matches form controls associated with a <label> whose text matches
func ByLabel(text string) Strategy {
	return Strategy{Kind: KindLabel, Name: pattern(text)}
}

// ByAttribute matches elements carrying attr, with the exact value when value is non-empty
func ByAttribute(attr, value string) Strategy {
	return Strategy{Kind: KindAttribute, Attr: attr, Value: value}
}

// ByClass matches elements with the class name
func ByClass(class string) Strategy {
	return Strategy{Kind: KindClass, Class: class}
}

// ByCSS matches a raw CSS selector
func ByCSS(selector string) Strategy {
	return Strategy{Kind: KindCSS, Selector: selector}
}

// ByText matches selector results whose text matches the case-insensitive pattern
func ByText(selector, text string) Strategy {
	return Strategy{Kind: KindText, Selector: selector, Name: pattern(text)}
}

func pattern(expr string) *regexp.Regexp {
	if expr == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + expr)
}

func (s Strategy) String() string {
	switch s.Kind {
	case KindRole:
		return fmt.Sprintf("role=%s name=%s", s.Role, patternString(s.Name))
	case KindLabel:
		return fmt.Sprintf("label=%s", patternString(s.Name))
	case KindAttribute:
		return "attribute=" + s.selector()
	case KindClass:
		return "class=" + s.Class
	case KindCSS:
		return "css=" + s.Selector
	case KindText:
		return fmt.Sprintf("text=%s in %s", patternString(s.Name), s.Selector)
	}
	return "unknown"
}

func patternString(re *regexp.Regexp) string {
	if re == nil {
		return "*"
	}
	return strings.TrimPrefix(re.String(), "(?i)")
}

// selector returns the CSS that produces this strategy's candidates
func (s Strategy) selector() string {
	switch s.Kind {
	case KindRole:
		if sel, ok := roleSelectors[s.Role]; ok {
			return sel
		}
		return fmt.Sprintf(`[role=%s]`, quote(s.Role))
	case KindLabel:
		return "label"
	case KindAttribute:
		if s.Value == "" {
			return fmt.Sprintf(`[%s]`, s.Attr)
		}
		return fmt.Sprintf(`[%s=%s]`, s.Attr, quote(s.Value))
	case KindClass:
		return fmt.Sprintf(`[class~=%s]`, quote(s.Class))
	default:
		return s.Selector
	}
}

func quote(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}

// find evaluates the strategy against scope, returning matches in document order
func (s Strategy) find(ctx context.Context, scope core.Scope) ([]core.Element, error) {
	candidates, err := scope.Elements(ctx, s.selector())
	if err != nil {
		return nil, err
	}

	switch s.Kind {
	case KindRole:
		return filterByName(ctx, candidates, s.Name, accessibleName)
	case KindText:
		return filterByName(ctx, candidates, s.Name, func(ctx context.Context, el core.Element) (string, error) {
			return el.Text(ctx)
		})
	case KindLabel:
		return s.labelled(ctx, scope, candidates)
	}
	return candidates, nil
}

func filterByName(
	ctx context.Context,
	candidates []core.Element,
	name *regexp.Regexp,
	nameOf func(context.Context, core.Element) (string, error),
) ([]core.Element, error) {
	if name == nil {
		return candidates, nil
	}
	matches := make([]core.Element, 0, len(candidates))
	for _, el := range candidates {
		n, err := nameOf(ctx, el)
		if err != nil {
			return nil, err
		}
		if name.MatchString(strings.TrimSpace(n)) {
			matches = append(matches, el)
		}
	}
	return matches, nil
}

// accessibleName approximates the ARIA name: aria-label, then text, then value, then title
func accessibleName(ctx context.Context, el core.Element) (string, error) {
	if v, ok, err := el.Attribute(ctx, "aria-label"); err != nil || (ok && v != "") {
		return v, err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	for _, attr := range []string{"value", "title"} {
		if v, ok, err := el.Attribute(ctx, attr); err != nil || (ok && v != "") {
			return v, err
		}
	}
	return "", nil
}

// labelled resolves <label> elements to their controls, via for= or nesting
func (s Strategy) labelled(ctx context.Context, scope core.Scope, labels []core.Element) ([]core.Element, error) {
	matching, err := filterByName(ctx, labels, s.Name, func(ctx context.Context, el core.Element) (string, error) {
		return el.Text(ctx)
	})
	if err != nil {
		return nil, err
	}

	var controls []core.Element
	for _, label := range matching {
		if id, ok, err := label.Attribute(ctx, "for"); err != nil {
			return nil, err
		} else if ok && id != "" {
			found, err := scope.Elements(ctx, fmt.Sprintf(`[id=%s]`, quote(id)))
			if err != nil {
				return nil, err
			}
			controls = append(controls, found...)
			continue
		}
		nested, err := label.Elements(ctx, "input, select, textarea")
		if err != nil {
			return nil, err
		}
		controls = append(controls, nested...)
	}
	return controls, nil
}
