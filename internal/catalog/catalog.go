// Package catalog — catalog.go загружает каталог кейсов из TOML.
// Каталог читается один раз при старте и дальше только читается,
// поэтому его можно без блокировок использовать из любых горутин.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gosimple/slug"
	"github.com/pelletier/go-toml/v2"
)

//go:embed default.toml
var defaultCatalog string

// maxPrice ограничивает цену шаблона так, чтобы Template.Value не переполнял int64.
const maxPrice int64 = 1_000_000_000_000

// Catalog — доступ к кейсам и шаблонам только на чтение.
type Catalog interface {
	Pool(id string) (*Pool, bool)
	Pools() []*Pool
	Template(id string) (*Template, bool)
}

// Static — каталог, целиком загруженный в память.
type Static struct {
	pools     []*Pool
	byID      map[string]*Pool
	templates map[string]*Template
}

type fileItem struct {
	ID       string  `toml:"id"`
	Name     string  `toml:"name"`
	Weapon   string  `toml:"weapon"`
	Rarity   *Rarity `toml:"rarity"`
	FloatMin float64 `toml:"float_min"`
	FloatMax float64 `toml:"float_max"`
	Price    int64   `toml:"price"`
	Copies   *int    `toml:"copies"`
}

type filePool struct {
	ID    string     `toml:"id"`
	Name  string     `toml:"name"`
	Cost  int64      `toml:"cost"`
	Items []fileItem `toml:"items"`
}

type file struct {
	Pools []filePool `toml:"pools"`
}

// Load читает каталог из TOML и проверяет его.
func Load(r io.Reader) (*Static, error) {
	var f file
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("ошибка разбора каталога: %w", err)
	}
	return build(f)
}

// LoadFile читает каталог из файла.
func LoadFile(path string) (*Static, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть каталог: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}

// Default возвращает встроенный каталог.
func Default() (*Static, error) {
	return Load(strings.NewReader(defaultCatalog))
}

// New собирает каталог из готовых кейсов (используется в тестах).
func New(pools ...Pool) (*Static, error) {
	var f file
	for _, p := range pools {
		fp := filePool{ID: p.ID, Name: p.Name, Cost: p.Cost}
		idx := make(map[string]int)
		for _, t := range p.Templates {
			// Повторы шаблона сворачиваем в copies.
			if i, ok := idx[t.ID]; ok {
				*fp.Items[i].Copies++
				continue
			}
			rarity, copies := t.Rarity, 1
			idx[t.ID] = len(fp.Items)
			fp.Items = append(fp.Items, fileItem{
				ID: t.ID, Name: t.Name, Weapon: t.Weapon, Rarity: &rarity,
				FloatMin: t.FloatMin, FloatMax: t.FloatMax, Price: t.Price,
				Copies: &copies,
			})
		}
		f.Pools = append(f.Pools, fp)
	}
	return build(f)
}

func build(f file) (*Static, error) {
	if len(f.Pools) == 0 {
		return nil, fmt.Errorf("каталог пуст")
	}

	c := &Static{
		byID:      make(map[string]*Pool, len(f.Pools)),
		templates: make(map[string]*Template),
	}

	for i, fp := range f.Pools {
		name := strings.TrimSpace(fp.Name)
		if name == "" {
			return nil, fmt.Errorf("кейс #%d: не задано название", i+1)
		}
		id := strings.TrimSpace(fp.ID)
		if id == "" {
			id = slug.Make(name)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("кейс %q: повторяющийся id", id)
		}
		if fp.Cost <= 0 {
			return nil, fmt.Errorf("кейс %q: стоимость должна быть > 0", id)
		}
		if len(fp.Items) == 0 {
			return nil, fmt.Errorf("кейс %q: нет предметов", id)
		}

		pool := &Pool{ID: id, Name: name, Cost: fp.Cost}
		// Один и тот же шаблон может лежать в нескольких кейсах,
		// но под одним id должен быть один и тот же предмет.
		seenInPool := make(map[string]bool)
		for _, it := range fp.Items {
			tpl, err := validateItem(id, it)
			if err != nil {
				return nil, err
			}
			if seenInPool[tpl.ID] {
				return nil, fmt.Errorf("кейс %q: предмет %q указан дважды, используйте copies", id, tpl.ID)
			}
			seenInPool[tpl.ID] = true

			if prev, ok := c.templates[tpl.ID]; ok && *prev != tpl {
				return nil, fmt.Errorf("предмет %q описан по-разному в разных кейсах", tpl.ID)
			}
			if _, ok := c.templates[tpl.ID]; !ok {
				t := tpl
				c.templates[tpl.ID] = &t
			}

			copies := 1
			if it.Copies != nil {
				copies = *it.Copies
			}
			for n := 0; n < copies; n++ {
				pool.Templates = append(pool.Templates, tpl)
			}
		}

		c.pools = append(c.pools, pool)
		c.byID[id] = pool
	}

	return c, nil
}

func validateItem(poolID string, it fileItem) (Template, error) {
	tpl := Template{
		ID:       strings.TrimSpace(it.ID),
		Name:     strings.TrimSpace(it.Name),
		Weapon:   strings.TrimSpace(it.Weapon),
		FloatMin: it.FloatMin,
		FloatMax: it.FloatMax,
		Price:    it.Price,
	}
	if tpl.Name == "" {
		return tpl, fmt.Errorf("кейс %q: у предмета нет названия", poolID)
	}
	if tpl.ID == "" {
		tpl.ID = slug.Make(tpl.Name)
	}
	if tpl.Weapon == "" {
		return tpl, fmt.Errorf("предмет %q: не указано оружие", tpl.ID)
	}
	if it.Rarity == nil {
		return tpl, fmt.Errorf("предмет %q: не указана редкость", tpl.ID)
	}
	tpl.Rarity = *it.Rarity
	if !tpl.Rarity.valid() {
		return tpl, fmt.Errorf("предмет %q: некорректная редкость", tpl.ID)
	}
	if tpl.FloatMin < 0 || tpl.FloatMax > 1 || tpl.FloatMin > tpl.FloatMax {
		return tpl, fmt.Errorf("предмет %q: диапазон float должен удовлетворять 0 <= min <= max <= 1", tpl.ID)
	}
	if tpl.Price < 0 {
		return tpl, fmt.Errorf("предмет %q: цена не может быть отрицательной", tpl.ID)
	}
	if tpl.Price > maxPrice {
		return tpl, fmt.Errorf("предмет %q: цена не может превышать %d", tpl.ID, maxPrice)
	}
	if it.Copies != nil && *it.Copies < 1 {
		return tpl, fmt.Errorf("предмет %q: copies должно быть >= 1", tpl.ID)
	}
	return tpl, nil
}

func (c *Static) Pool(id string) (*Pool, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Pools возвращает кейсы в порядке из файла.
func (c *Static) Pools() []*Pool {
	out := make([]*Pool, len(c.pools))
	copy(out, c.pools)
	return out
}

func (c *Static) Template(id string) (*Template, bool) {
	t, ok := c.templates[id]
	return t, ok
}
