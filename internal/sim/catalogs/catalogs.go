package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"beltgrid.ai/internal/sim/factory/machine"
	"beltgrid.ai/internal/sim/factory/model"
)

type Catalogs struct {
	Items   ItemCatalog
	Recipes RecipeCatalog
}

type ItemCatalog struct {
	Palette       []string
	Defs          map[model.ItemType]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"` // "RAW","FUEL","INTERMEDIATE","PRODUCT"
	FuelTicks int    `json:"fuel_ticks,omitempty"`
}

type RecipeCatalog struct {
	ByID   map[string]*machine.Recipe
	Defs   map[string]RecipeDef
	Digest string
}

type RecipeDef struct {
	RecipeID  string      `json:"recipe_id"`
	Station   string      `json:"station"`
	Inputs    []ItemCount `json:"inputs"`
	Outputs   []ItemCount `json:"outputs"`
	TimeTicks int         `json:"time_ticks"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes); err != nil {
		return nil, err
	}
	return &c, nil
}

// FuelTicks is the burn value of t, zero when t is not a fuel.
func (c *Catalogs) FuelTicks(t model.ItemType) int {
	return c.Items.Defs[t].FuelTicks
}

func (c *Catalogs) Recipe(id string) (*machine.Recipe, bool) {
	r, ok := c.Recipes.ByID[id]
	return r, ok
}

// RecipeIDs returns every recipe id in sorted order.
func (c *Catalogs) RecipeIDs() []string {
	ids := make([]string, 0, len(c.Recipes.ByID))
	for id := range c.Recipes.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[model.ItemType]ItemDef{}
	for _, d := range defs {
		t, ok := model.ParseItemType(d.ID)
		if !ok {
			return fmt.Errorf("items.json: unknown item %q", d.ID)
		}
		if _, dup := out.Defs[t]; dup {
			return fmt.Errorf("items.json: duplicate item %q", d.ID)
		}
		if d.FuelTicks < 0 {
			return fmt.Errorf("items.json: %s: negative fuel_ticks", d.ID)
		}
		out.Defs[t] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for _, d := range out.Defs {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	out.Palette = ids
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadRecipes(path string, out *RecipeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByID = map[string]*machine.Recipe{}
	out.Defs = map[string]RecipeDef{}
	for _, d := range defs {
		if d.RecipeID == "" {
			return fmt.Errorf("recipes.json: empty recipe_id")
		}
		if _, dup := out.ByID[d.RecipeID]; dup {
			return fmt.Errorf("recipes.json: duplicate recipe %q", d.RecipeID)
		}
		r, err := toRecipe(d)
		if err != nil {
			return fmt.Errorf("recipes.json: %s: %w", d.RecipeID, err)
		}
		out.ByID[d.RecipeID] = r
		out.Defs[d.RecipeID] = d
	}
	return nil
}

func toRecipe(d RecipeDef) (*machine.Recipe, error) {
	station, ok := machine.ParseKind(d.Station)
	if !ok || (station != machine.KindCrafter && station != machine.KindFurnace) {
		return nil, fmt.Errorf("station %q is not a crafter or furnace", d.Station)
	}
	if len(d.Inputs) == 0 {
		return nil, fmt.Errorf("no inputs")
	}
	if len(d.Outputs) != 1 {
		return nil, fmt.Errorf("want exactly one output, have %d", len(d.Outputs))
	}
	if d.TimeTicks < 0 {
		return nil, fmt.Errorf("negative time_ticks")
	}
	r := &machine.Recipe{ID: d.RecipeID, Station: station, TimeTicks: d.TimeTicks}
	for _, ic := range d.Inputs {
		ing, err := toIngredient(ic)
		if err != nil {
			return nil, err
		}
		r.Inputs = append(r.Inputs, ing)
	}
	outIng, err := toIngredient(d.Outputs[0])
	if err != nil {
		return nil, err
	}
	r.Output = outIng
	return r, nil
}

func toIngredient(ic ItemCount) (machine.Ingredient, error) {
	t, ok := model.ParseItemType(ic.Item)
	if !ok {
		return machine.Ingredient{}, fmt.Errorf("unknown item %q", ic.Item)
	}
	if ic.Count <= 0 {
		return machine.Ingredient{}, fmt.Errorf("%s: count must be positive", ic.Item)
	}
	return machine.Ingredient{Item: t, Count: ic.Count}, nil
}
