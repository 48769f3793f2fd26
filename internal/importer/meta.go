package importer

import (
	"fmt"
	"regexp"
)

// Reserved sheet names of the workbook manifest.
const (
	tabsSheet         = "tabs"
	translationsSheet = "translations"
)

// Tab declares one data sheet and the services that should consume it.
type Tab struct {
	Tab      string
	Services []string
}

// Meta is the in-memory import manifest parsed from the reserved sheets.
type Meta struct {
	Tabs         []Tab
	Translations map[string]string
}

var serviceSeparator = regexp.MustCompile(`[,\s]+`)

// ReadMeta parses the reserved "tabs" and "translations" sheets. A
// missing tabs sheet yields an empty manifest; a missing translations
// sheet yields an empty rename map.
func ReadMeta(wb Workbook) (Meta, error) {
	meta := Meta{Translations: make(map[string]string)}

	if wb.HasSheet(tabsSheet) {
		rows, err := wb.Rows(tabsSheet)
		if err != nil {
			return meta, fmt.Errorf("read tabs sheet: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			row, err := rows.Row()
			if err != nil {
				return meta, fmt.Errorf("read tabs sheet: %w", err)
			}
			tab := stringOf(row["tab"])
			services := splitServices(stringOf(row["services"]))
			if tab == "" || len(services) == 0 {
				continue
			}
			meta.Tabs = append(meta.Tabs, Tab{Tab: tab, Services: services})
		}
	}

	if wb.HasSheet(translationsSheet) {
		rows, err := wb.Rows(translationsSheet)
		if err != nil {
			return meta, fmt.Errorf("read translations sheet: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			row, err := rows.Row()
			if err != nil {
				return meta, fmt.Errorf("read translations sheet: %w", err)
			}
			from := stringOf(row["from"])
			to := stringOf(row["to"])
			if from == "" || to == "" {
				continue
			}
			meta.Translations[from] = to
		}
	}

	return meta, nil
}

func splitServices(raw string) []string {
	var services []string
	for _, part := range serviceSeparator.Split(raw, -1) {
		if part != "" {
			services = append(services, part)
		}
	}
	return services
}

func stringOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
