package regions

import "testing"

func TestTableRegion(t *testing.T) {
	t.Parallel()

	table := New(map[string][]string{
		"Center": {"Tel Aviv", "Ramat  Gan"},
		"North":  {"Haifa"},
	})

	tests := []struct {
		name   string
		input  string
		region string
		found  bool
	}{
		{name: "city", input: "tel aviv", region: "center", found: true},
		{name: "case and spaces", input: "  RAMAT gan ", region: "center", found: true},
		{name: "region name", input: "North", region: "north", found: true},
		{name: "city with country", input: "Haifa, Israel", region: "north", found: true},
		{name: "unknown", input: "Berlin", found: false},
		{name: "empty", input: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			region, ok := table.Region(tt.input)
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, ok)
			}
			if region != tt.region {
				t.Fatalf("expected region %q, got %q", tt.region, region)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	table, err := FromConfig(map[string]any{
		"south": []any{"Eilat"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, ok := table.Region("eilat"); !ok || r != "south" {
		t.Fatalf("expected eilat in south, got %q (%v)", r, ok)
	}

	def, err := FromConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, ok := def.Region("Tel Aviv"); !ok || r != "center" {
		t.Fatalf("expected default table to know tel aviv, got %q", r)
	}
}

func TestNilTable(t *testing.T) {
	var table *Table
	if _, ok := table.Region("haifa"); ok {
		t.Fatal("nil table must not resolve regions")
	}
}
