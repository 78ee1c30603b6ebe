// Package regions maps city names to named regions. The table is configuration
// data: the matching engine only sees it through the Lookup interface.
package regions

import (
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Lookup resolves a city or region name to a canonical region name.
type Lookup interface {
	Region(name string) (string, bool)
}

// Table is a case-insensitive city -> region index.
type Table struct {
	cities  map[string]string
	regions map[string]string
}

// Default is used when the configuration carries no regions section.
var Default = map[string][]string{
	"center":    {"tel aviv", "tel aviv-yafo", "ramat gan", "givatayim", "bnei brak", "holon", "bat yam", "petah tikva", "herzliya", "ra'anana", "kfar saba", "rishon lezion", "rehovot", "ness ziona", "netanya", "hod hasharon", "or yehuda", "yehud", "lod", "ramla", "modiin"},
	"jerusalem": {"jerusalem", "beit shemesh", "mevaseret zion", "ma'ale adumim"},
	"north":     {"haifa", "nazareth", "afula", "karmiel", "acre", "akko", "nahariya", "tiberias", "kiryat shmona", "yokneam", "kiryat ata", "kiryat bialik", "kiryat motzkin", "tirat carmel", "safed"},
	"south":     {"beer sheva", "be'er sheva", "ashdod", "ashkelon", "eilat", "dimona", "kiryat gat", "sderot", "netivot", "ofakim", "arad"},
	"sharon":    {"hadera", "zichron yaakov", "pardes hanna", "caesarea", "kadima", "even yehuda", "tel mond"},
}

// New builds a table from region -> cities pairs. Region names resolve to themselves.
func New(byRegion map[string][]string) *Table {
	t := &Table{
		cities:  make(map[string]string),
		regions: make(map[string]string),
	}
	for region, cities := range byRegion {
		r := normalize(region)
		if r == "" {
			continue
		}
		t.regions[r] = r
		for _, city := range cities {
			if c := normalize(city); c != "" {
				t.cities[c] = r
			}
		}
	}
	return t
}

// FromConfig decodes a raw configuration value (as produced by viper) into a table.
// An empty value yields the Default table.
func FromConfig(raw any) (*Table, error) {
	if raw == nil {
		return New(Default), nil
	}

	var byRegion map[string][]string
	if err := mapstructure.WeakDecode(raw, &byRegion); err != nil {
		return nil, err
	}
	if len(byRegion) == 0 {
		return New(Default), nil
	}
	return New(byRegion), nil
}

func (t *Table) Region(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	n := normalize(name)
	if n == "" {
		return "", false
	}
	if r, ok := t.cities[n]; ok {
		return r, true
	}
	if r, ok := t.regions[n]; ok {
		return r, true
	}
	// "Tel Aviv, Israel" style locations
	if head, _, found := strings.Cut(n, ","); found {
		if r, ok := t.cities[strings.TrimSpace(head)]; ok {
			return r, true
		}
	}
	return "", false
}

// Regions returns the sorted list of known region names.
func (t *Table) Regions() []string {
	out := make([]string, 0, len(t.regions))
	for r := range t.regions {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
