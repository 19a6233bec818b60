// Package categories holds the fixed value-to-label partitions used by the
// scoring engine: zodiac, color and element, plus the six groupings derived
// from the zodiac.
package categories

import (
	"sort"
	"strings"
	"sync"
)

// Category names a partition of the value domain.
type Category string

const (
	Zodiac       Category = "zodiac"
	Color        Category = "color"
	Element      Category = "element"
	HeavenEarth  Category = "heaven_earth"
	YinYang      Category = "yin_yang"
	MaleFemale   Category = "male_female"
	Auspicious   Category = "auspicious"
	Season       Category = "season"
	DomesticWild Category = "domestic_wild"
)

// Value domain bounds.
const (
	MinValue = 1
	MaxValue = 49
)

// Unknown is returned for values or labels outside every partition.
const Unknown = "unknown"

// Zodiac labels in declaration order. Declaration order is also the
// tie-break order for label rankings.
var zodiacOrder = []string{
	"rat", "ox", "tiger", "rabbit", "dragon", "snake",
	"horse", "goat", "monkey", "rooster", "dog", "pig",
}

var zodiacMembers = map[string][]int{
	"rat":     {6, 18, 30, 42},
	"ox":      {5, 17, 29, 41},
	"tiger":   {4, 16, 28, 40},
	"rabbit":  {3, 15, 27, 39},
	"dragon":  {2, 14, 26, 38},
	"snake":   {1, 13, 25, 37, 49},
	"horse":   {12, 24, 36, 48},
	"goat":    {11, 23, 35, 47},
	"monkey":  {10, 22, 34, 46},
	"rooster": {9, 21, 33, 45},
	"dog":     {8, 20, 32, 44},
	"pig":     {7, 19, 31, 43},
}

var colorOrder = []string{"red", "blue", "green"}

var colorMembers = map[string][]int{
	"red":   {1, 2, 7, 8, 12, 13, 18, 19, 23, 24, 29, 30, 34, 35, 40, 45, 46},
	"blue":  {3, 4, 9, 10, 14, 15, 20, 25, 26, 31, 36, 37, 41, 42, 47, 48},
	"green": {5, 6, 11, 16, 17, 21, 22, 27, 28, 32, 33, 38, 39, 43, 44, 49},
}

var elementOrder = []string{"metal", "wood", "water", "fire", "earth"}

var elementMembers = map[string][]int{
	"metal": {3, 4, 11, 12, 25, 26, 33, 34, 41, 42},
	"wood":  {7, 8, 15, 16, 23, 24, 37, 38, 45, 46},
	"water": {13, 14, 21, 22, 29, 30, 43, 44},
	"fire":  {1, 2, 9, 10, 17, 18, 31, 32, 39, 40, 47, 48},
	"earth": {5, 6, 19, 20, 27, 28, 35, 36, 49},
}

// zodiacGrouping is a derived category: an ordered set of labels, each
// owning a set of zodiacs.
type zodiacGrouping struct {
	category Category
	order    []string
	members  map[string][]string
}

var groupings = []zodiacGrouping{
	{
		category: HeavenEarth,
		order:    []string{"heaven", "earth"},
		members: map[string][]string{
			"heaven": {"rabbit", "ox", "horse", "monkey", "pig", "dragon"},
			"earth":  {"rat", "tiger", "snake", "goat", "rooster", "dog"},
		},
	},
	{
		category: YinYang,
		order:    []string{"yang", "yin"},
		members: map[string][]string{
			"yang": {"rat", "tiger", "dragon", "horse", "monkey", "dog"},
			"yin":  {"ox", "rabbit", "snake", "goat", "rooster", "pig"},
		},
	},
	{
		category: MaleFemale,
		order:    []string{"male", "female"},
		members: map[string][]string{
			"male":   {"rat", "ox", "tiger", "dragon", "horse", "monkey", "dog"},
			"female": {"rabbit", "snake", "goat", "rooster", "pig"},
		},
	},
	{
		category: Auspicious,
		order:    []string{"lucky", "unlucky"},
		members: map[string][]string{
			"lucky":   {"rabbit", "dragon", "snake", "horse", "goat", "rooster"},
			"unlucky": {"rat", "ox", "tiger", "monkey", "dog", "pig"},
		},
	},
	{
		category: Season,
		order:    []string{"spring", "summer", "autumn", "winter"},
		members: map[string][]string{
			"spring": {"tiger", "rabbit", "dragon"},
			"summer": {"snake", "horse", "goat"},
			"autumn": {"monkey", "rooster", "dog"},
			"winter": {"rat", "pig", "ox"},
		},
	},
	{
		category: DomesticWild,
		order:    []string{"domestic", "wild"},
		members: map[string][]string{
			"domestic": {"ox", "horse", "goat", "rooster", "dog", "pig"},
			"wild":     {"rat", "tiger", "rabbit", "dragon", "snake", "monkey"},
		},
	},
}

// Upstream draw feeds label entries with Chinese names.
var zodiacAliases = map[string]string{
	"鼠": "rat", "牛": "ox", "虎": "tiger", "兔": "rabbit", "龙": "dragon", "龍": "dragon",
	"蛇": "snake", "马": "horse", "馬": "horse", "羊": "goat", "猴": "monkey",
	"鸡": "rooster", "雞": "rooster", "狗": "dog", "猪": "pig", "豬": "pig",
}

var elementAliases = map[string]string{
	"金": "metal", "木": "wood", "水": "water", "火": "fire", "土": "earth",
}

// Table is an immutable lookup from (category, value) to label.
type Table struct {
	order      []Category
	labels     map[Category][]string
	byValue    map[Category]*[MaxValue + 1]string
	byZodiac   map[Category]map[string]string
	membership map[Category]map[string][]int
}

var (
	defaultTable *Table
	defaultOnce  sync.Once
)

// Default returns the shared table, building it on first use.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = build()
	})
	return defaultTable
}

func build() *Table {
	t := &Table{
		order:      []Category{Zodiac, Color, Element},
		labels:     make(map[Category][]string),
		byValue:    make(map[Category]*[MaxValue + 1]string),
		byZodiac:   make(map[Category]map[string]string),
		membership: make(map[Category]map[string][]int),
	}

	t.addPartition(Zodiac, zodiacOrder, zodiacMembers)
	t.addPartition(Color, colorOrder, colorMembers)
	t.addPartition(Element, elementOrder, elementMembers)

	zodiacs := t.byValue[Zodiac]
	for _, g := range groupings {
		t.order = append(t.order, g.category)
		t.labels[g.category] = g.order

		lookup := make(map[string]string, len(zodiacOrder))
		for _, label := range g.order {
			for _, z := range g.members[label] {
				lookup[z] = label
			}
		}
		t.byZodiac[g.category] = lookup

		values := new([MaxValue + 1]string)
		members := make(map[string][]int, len(g.order))
		for v := MinValue; v <= MaxValue; v++ {
			label, ok := lookup[zodiacs[v]]
			if !ok {
				label = Unknown
			}
			values[v] = label
			members[label] = append(members[label], v)
		}
		t.byValue[g.category] = values
		t.membership[g.category] = members
	}

	return t
}

func (t *Table) addPartition(c Category, order []string, members map[string][]int) {
	values := new([MaxValue + 1]string)
	copied := make(map[string][]int, len(order))
	for _, label := range order {
		vs := append([]int(nil), members[label]...)
		sort.Ints(vs)
		copied[label] = vs
		for _, v := range vs {
			values[v] = label
		}
	}
	t.labels[c] = order
	t.byValue[c] = values
	t.membership[c] = copied
}

// LabelOf returns the label of value in category, or Unknown.
func (t *Table) LabelOf(c Category, value int) string {
	values, ok := t.byValue[c]
	if !ok || value < MinValue || value > MaxValue {
		return Unknown
	}
	if values[value] == "" {
		return Unknown
	}
	return values[value]
}

// GroupOf maps a zodiac label onto its label in a derived category.
func (t *Table) GroupOf(c Category, zodiac string) string {
	lookup, ok := t.byZodiac[c]
	if !ok {
		return Unknown
	}
	if label, ok := lookup[zodiac]; ok {
		return label
	}
	return Unknown
}

// Labels returns the labels of a category in declaration order.
func (t *Table) Labels(c Category) []string {
	return append([]string(nil), t.labels[c]...)
}

// Members returns the ascending values carrying label in category.
func (t *Table) Members(c Category, label string) []int {
	return append([]int(nil), t.membership[c][label]...)
}

// Categories returns every category in declaration order.
func (t *Table) Categories() []Category {
	return append([]Category(nil), t.order...)
}

// TrendCategories returns every category except the zodiac itself.
func (t *Table) TrendCategories() []Category {
	out := make([]Category, 0, len(t.order)-1)
	for _, c := range t.order {
		if c != Zodiac {
			out = append(out, c)
		}
	}
	return out
}

// LabelIndex returns the declaration index of label, or len(labels) when
// the label is not part of the category.
func (t *Table) LabelIndex(c Category, label string) int {
	labels := t.labels[c]
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return len(labels)
}

func (t *Table) ZodiacOf(value int) string  { return t.LabelOf(Zodiac, value) }
func (t *Table) ColorOf(value int) string   { return t.LabelOf(Color, value) }
func (t *Table) ElementOf(value int) string { return t.LabelOf(Element, value) }

// Tail returns the last decimal digit of value.
func Tail(value int) int {
	return value % 10
}

// ValidValue reports whether value lies inside the value domain.
func ValidValue(value int) bool {
	return value >= MinValue && value <= MaxValue
}

// ParseZodiac normalises an English or Chinese zodiac name.
func ParseZodiac(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if z, ok := zodiacAliases[name]; ok {
		return z, true
	}
	lower := strings.ToLower(name)
	if _, ok := zodiacMembers[lower]; ok {
		return lower, true
	}
	return Unknown, false
}

// ParseElement normalises an English or Chinese element name.
func ParseElement(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if e, ok := elementAliases[name]; ok {
		return e, true
	}
	lower := strings.ToLower(name)
	if _, ok := elementMembers[lower]; ok {
		return lower, true
	}
	return Unknown, false
}
