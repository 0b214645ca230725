package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"floor-designer/internal/layout/grid"
	"floor-designer/internal/layout/models"
)

// ============================================================
// Catalog
// ============================================================

//go:embed default.toml
var defaultCatalog string

type catalogFile struct {
	Entries []models.CatalogEntry `toml:"entry"`
}

// Catalog хранит неизменяемый список шаблонов для размещения.
type Catalog struct {
	entries []models.CatalogEntry
	byID    map[string]models.CatalogEntry
}

// Default возвращает встроенный каталог.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load читает каталог из TOML-файла; при пустом пути возвращает встроенный.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(string(data))
}

func Parse(data string) (*Catalog, error) {
	var f catalogFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]models.CatalogEntry, len(f.Entries))}
	for _, e := range f.Entries {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %q: id required", e.Name)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("catalog entry %q: duplicate id", e.ID)
		}
		if err := grid.Validate(e.Size); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", e.ID, err)
		}
		c.byID[e.ID] = e
		c.entries = append(c.entries, e)
	}
	sort.SliceStable(c.entries, func(i, j int) bool { return c.entries[i].ID < c.entries[j].ID })
	return c, nil
}

func (c *Catalog) Entries() []models.CatalogEntry {
	out := make([]models.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Get(id string) (models.CatalogEntry, bool) {
	e, ok := c.byID[id]
	if ok {
		e.Metadata = models.CloneMetadata(e.Metadata)
	}
	return e, ok
}
