// Package catalog — search.go: нечёткий поиск шаблонов по названию для админки.
package catalog

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// templateSource — шаблоны каталога для нечёткого поиска по имени (fuzzy.Source).
type templateSource []*Template

func (s templateSource) Len() int { return len(s) }

func (s templateSource) String(i int) string {
	return strings.ToLower(s[i].Name)
}

// Search ищет шаблоны по имени ("awp asi" найдёт "AWP | Asiimov").
// Результат отсортирован по релевантности, повторы шаблона внутри кейсов не дублируются.
// limit <= 0 — без ограничения.
func Search(c Catalog, query string, limit int) []*Template {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var src templateSource
	for _, p := range c.Pools() {
		for i := range p.Templates {
			t := &p.Templates[i]
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			src = append(src, t)
		}
	}

	matches := fuzzy.FindFrom(query, src)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]*Template, len(matches))
	for i, m := range matches {
		out[i] = src[m.Index]
	}
	return out
}
