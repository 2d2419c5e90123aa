// Package catalog — models.go описывает статический каталог наград:
// кейсы, шаблоны предметов, степени износа и редкость.
package catalog

import (
	"fmt"
	"strings"
)

// Wear — степень износа предмета. Чем меньше значение, тем лучше состояние.
type Wear int

const (
	FactoryNew Wear = iota
	MinimalWear
	FieldTested
	WellWorn
	BattleScarred
)

// Границы полос износа по float: [0,0.07) [0.07,0.15) [0.15,0.38) [0.38,0.45) [0.45,1].
var wearBands = [...]struct {
	upper  float64
	factor int64 // множитель цены в процентах
	name   string
	short  string
}{
	FactoryNew:    {0.07, 100, "Factory New", "FN"},
	MinimalWear:   {0.15, 85, "Minimal Wear", "MW"},
	FieldTested:   {0.38, 70, "Field-Tested", "FT"},
	WellWorn:      {0.45, 55, "Well-Worn", "WW"},
	BattleScarred: {1.00, 45, "Battle-Scarred", "BS"},
}

// WearForFloat возвращает полосу износа для значения float.
func WearForFloat(f float64) Wear {
	for w := FactoryNew; w < BattleScarred; w++ {
		if f < wearBands[w].upper {
			return w
		}
	}
	return BattleScarred
}

func (w Wear) valid() bool { return w >= FactoryNew && w <= BattleScarred }

func (w Wear) String() string {
	if !w.valid() {
		return fmt.Sprintf("Wear(%d)", int(w))
	}
	return wearBands[w].name
}

// Short возвращает сокращение (FN, MW, ...).
func (w Wear) Short() string {
	if !w.valid() {
		return "?"
	}
	return wearBands[w].short
}

// ParseWear принимает полное название или сокращение.
func ParseWear(s string) (Wear, error) {
	s = strings.TrimSpace(s)
	for w := range wearBands {
		if strings.EqualFold(s, wearBands[w].name) || strings.EqualFold(s, wearBands[w].short) {
			return Wear(w), nil
		}
	}
	return 0, fmt.Errorf("неизвестный износ %q", s)
}

func (w Wear) MarshalText() ([]byte, error) {
	if !w.valid() {
		return nil, fmt.Errorf("некорректный износ %d", int(w))
	}
	return []byte(wearBands[w].name), nil
}

func (w *Wear) UnmarshalText(b []byte) error {
	v, err := ParseWear(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Rarity — редкость предмета, от самой частой к самой редкой.
type Rarity int

const (
	Consumer Rarity = iota
	Industrial
	MilSpec
	Restricted
	Classified
	Covert
	Extraordinary
)

var rarityNames = [...]string{
	Consumer:      "consumer",
	Industrial:    "industrial",
	MilSpec:       "milspec",
	Restricted:    "restricted",
	Classified:    "classified",
	Covert:        "covert",
	Extraordinary: "extraordinary",
}

func (r Rarity) valid() bool { return r >= Consumer && r <= Extraordinary }

func (r Rarity) String() string {
	if !r.valid() {
		return fmt.Sprintf("Rarity(%d)", int(r))
	}
	return rarityNames[r]
}

// ParseRarity разбирает название редкости без учёта регистра.
func ParseRarity(s string) (Rarity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "")
	for r, name := range rarityNames {
		if s == name {
			return Rarity(r), nil
		}
	}
	return 0, fmt.Errorf("неизвестная редкость %q", s)
}

func (r Rarity) MarshalText() ([]byte, error) {
	if !r.valid() {
		return nil, fmt.Errorf("некорректная редкость %d", int(r))
	}
	return []byte(rarityNames[r]), nil
}

func (r *Rarity) UnmarshalText(b []byte) error {
	v, err := ParseRarity(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Template — шаблон предмета, который может выпасть из кейса.
type Template struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Weapon   string  `json:"weapon"`
	Rarity   Rarity  `json:"rarity"`
	FloatMin float64 `json:"float_min"`
	FloatMax float64 `json:"float_max"`
	Price    int64   `json:"price"` // цена в душах для состояния Factory New
}

// Value оценивает предмет с данным износом: цена, умноженная на коэффициент износа.
func (t *Template) Value(w Wear) int64 {
	if !w.valid() {
		w = BattleScarred
	}
	return t.Price * wearBands[w].factor / 100
}

// Contains сообщает, лежит ли float внутри диапазона шаблона.
func (t *Template) Contains(f float64) bool {
	return f >= t.FloatMin && f <= t.FloatMax
}

// Pool — кейс. Templates — развёрнутый список: дубликаты задают вес выпадения.
type Pool struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Cost      int64      `json:"cost"`
	Templates []Template `json:"templates"`
}
