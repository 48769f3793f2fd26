package importer

import (
	"reflect"
	"testing"
)

func TestReadMeta(t *testing.T) {
	wb := manifest(
		[]map[string]any{
			{"tab": "Sheet1", "services": "widget, order"},
			{"tab": "Sheet2", "services": "customer"},
			{"tab": "", "services": "ghost"},
			{"tab": "Empty", "services": ""},
		},
		[]map[string]any{
			{"from": "nm", "to": "name"},
			{"from": "", "to": "dropped"},
		},
		nil,
	)

	meta, err := ReadMeta(wb)
	if err != nil {
		t.Fatalf("read meta failed: %v", err)
	}

	wantTabs := []Tab{
		{Tab: "Sheet1", Services: []string{"widget", "order"}},
		{Tab: "Sheet2", Services: []string{"customer"}},
	}
	if !reflect.DeepEqual(meta.Tabs, wantTabs) {
		t.Fatalf("expected %v, got %v", wantTabs, meta.Tabs)
	}
	if !reflect.DeepEqual(meta.Translations, map[string]string{"nm": "name"}) {
		t.Fatalf("unexpected translations %v", meta.Translations)
	}
}

func TestReadMetaWithoutReservedSheets(t *testing.T) {
	meta, err := ReadMeta(&fakeWorkbook{sheets: map[string][]map[string]any{}})
	if err != nil {
		t.Fatalf("read meta failed: %v", err)
	}
	if len(meta.Tabs) != 0 || len(meta.Translations) != 0 {
		t.Fatalf("expected an empty manifest, got %+v", meta)
	}
}

func TestSplitServices(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"widget", []string{"widget"}},
		{"widget, order", []string{"widget", "order"}},
		{"widget order\tcustomer", []string{"widget", "order", "customer"}},
		{" , ", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := splitServices(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitServices(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestTranslate(t *testing.T) {
	item := map[string]any{"nm": "a", "price": 2}
	out := translate(item, map[string]string{"nm": "name"})
	if out["name"] != "a" || out["price"] != 2 {
		t.Fatalf("unexpected translated row %v", out)
	}
	if _, ok := out["nm"]; ok {
		t.Fatal("expected the source key to be renamed")
	}

	same := translate(item, nil)
	if !reflect.DeepEqual(same, item) {
		t.Fatal("expected pass-through without translations")
	}
}
