package subst

import (
	"path/filepath"
	"regexp"
	"strings"
)

// itemSyntax matches the inside of a braced placeholder:
//
//	[PREFIX<][NAMESPACE.]NAME[?DEFAULT][:BASE|:DIR][>SUFFIX]
const itemSyntax = `((?P<prefix>[^{}]+)<)?(?P<name>[._a-z][._a-z0-9]*)(?P<hasdef>\?(?P<defval>[^}$]*?))?(:(?P<command>BASE|DIR))?(>(?P<suffix>[^{}]+))?`

var (
	// placeholderPattern finds "$$", "$name", "${item}" and lone "$" in a string.
	placeholderPattern = regexp.MustCompile(`(?i)(?P<escaped>\$\$)|\$(?P<named>[_a-z][_a-z0-9]*)|\$\{(?P<braced>` + itemSyntax + `)\}|(?P<invalid>\$)`)

	itemPattern = regexp.MustCompile(`(?i)^` + itemSyntax + `$`)

	// percentPattern implements the legacy "%(name)s" pass.
	percentPattern = regexp.MustCompile(`%%|%\(([^)]*)\)s`)

	groupEscaped = placeholderPattern.SubexpIndex("escaped")
	groupNamed   = placeholderPattern.SubexpIndex("named")
	groupBraced  = placeholderPattern.SubexpIndex("braced")

	itemPrefix  = itemPattern.SubexpIndex("prefix")
	itemName    = itemPattern.SubexpIndex("name")
	itemHasDef  = itemPattern.SubexpIndex("hasdef")
	itemDefault = itemPattern.SubexpIndex("defval")
	itemCommand = itemPattern.SubexpIndex("command")
	itemSuffix  = itemPattern.SubexpIndex("suffix")
)

// placeholder is a parsed "${...}" item.
type placeholder struct {
	Prefix     string
	Name       string
	Default    string
	HasDefault bool
	Command    string
	Suffix     string
}

// parseItem parses the inside of a placeholder. A bare "$name" is a valid item
// with no decorations.
func parseItem(item string) (placeholder, bool) {
	m := itemPattern.FindStringSubmatch(item)
	if m == nil {
		return placeholder{}, false
	}
	return placeholder{
		Prefix:     m[itemPrefix],
		Name:       m[itemName],
		Default:    m[itemDefault],
		HasDefault: m[itemHasDef] != "",
		Command:    strings.ToUpper(m[itemCommand]),
		Suffix:     m[itemSuffix],
	}, true
}

// splitNamespace splits "ns.name" at the last dot.
func splitNamespace(name string) (ns, varName string, dotted bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", name, false
	}
	return name[:i], name[i+1:], true
}

// baseName strips trailing separators, the directory part and the extension.
func baseName(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	base := filepath.Base(p)
	ext := filepath.Ext(base)
	if ext == base {
		// dotfile such as ".profile"
		return base
	}
	return strings.TrimSuffix(base, ext)
}

// dirName returns the parent directory, or "." if there is none.
func dirName(p string) string {
	if !strings.Contains(p, "/") {
		return "."
	}
	return filepath.Dir(p)
}

// References returns the undotted variable names referenced by placeholders in
// s, in order of appearance, without duplicates.
func References(s string) []string {
	var names []string
	seen := make(map[string]struct{})
	add := func(item string) {
		ph, ok := parseItem(item)
		if !ok {
			return
		}
		if _, _, dotted := splitNamespace(ph.Name); dotted {
			return
		}
		if _, dup := seen[ph.Name]; dup {
			return
		}
		seen[ph.Name] = struct{}{}
		names = append(names, ph.Name)
	}
	for _, m := range percentPattern.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			add(m[1])
		}
	}
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		switch {
		case m[groupNamed] != "":
			add(m[groupNamed])
		case m[groupBraced] != "":
			add(m[groupBraced])
		}
	}
	return names
}
