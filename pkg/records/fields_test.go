package records

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAllowLists(t *testing.T) {
	if len(Columns) != 12 {
		t.Fatalf("Expected 12 columns, got %d", len(Columns))
	}
	for _, c := range Columns {
		if !IsColumn(c) {
			t.Errorf("Column %q not recognised by IsColumn", c)
		}
		if FieldKind(c) == KindUnknown {
			t.Errorf("Column %q has no kind", c)
		}
	}
	for _, f := range SearchFields {
		if !IsSearchField(f) {
			t.Errorf("Search field %q not recognised", f)
		}
		if FieldKind(f) != KindText {
			t.Errorf("Search field %q should be text", f)
		}
	}

	for _, name := range []string{IDField, "bogus_field", "", "$where", "LEGAL_NAME"} {
		if IsColumn(name) {
			t.Errorf("Expected %q to be rejected", name)
		}
	}
	if IsSearchField(EntityType) {
		t.Errorf("entity_type must not be searchable")
	}
}

func TestRecordJSONHasAllColumns(t *testing.T) {
	r := Record{
		CreatedDT:            time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		DataSourceModifiedDT: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		LegalName:            "ACME TRUCKING LLC",
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Failed to marshal record: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Failed to unmarshal record: %v", err)
	}

	for _, c := range Columns {
		if _, ok := m[c]; !ok {
			t.Errorf("Expected column %q in JSON output", c)
		}
	}
	if m[PowerUnits] != nil {
		t.Errorf("Expected null power_units, got %v", m[PowerUnits])
	}
}

func TestRecordValues(t *testing.T) {
	units := int64(7)
	r := Record{LegalName: "ACME", PowerUnits: &units}

	v := r.Values()
	if len(v) != len(Columns) {
		t.Fatalf("Expected %d values, got %d", len(Columns), len(v))
	}
	if v[PowerUnits] != int64(7) {
		t.Errorf("Expected power_units 7, got %v", v[PowerUnits])
	}
	if v[USDOTNumber] != nil {
		t.Errorf("Expected nil usdot_number, got %v", v[USDOTNumber])
	}
}
