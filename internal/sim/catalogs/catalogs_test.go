package catalogs

import (
	"os"
	"path/filepath"
	"testing"

	"beltgrid.ai/internal/sim/factory/machine"
	"beltgrid.ai/internal/sim/factory/model"
)

func TestLoad_RepoConfigs(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.FuelTicks(model.Coal) != 20 || c.FuelTicks(model.IronOre) != 0 {
		t.Fatalf("fuel ticks coal=%d ore=%d", c.FuelTicks(model.Coal), c.FuelTicks(model.IronOre))
	}
	r, ok := c.Recipe("smelt_iron")
	if !ok {
		t.Fatalf("smelt_iron missing")
	}
	if r.Station != machine.KindFurnace || r.Output.Item != model.IronIngot || r.TimeTicks != 5 {
		t.Fatalf("smelt_iron=%+v", r)
	}
	if len(c.Items.Palette) != 10 || c.Items.PaletteDigest == "" || c.Recipes.Digest == "" {
		t.Fatalf("palette=%v digests=%q/%q", c.Items.Palette, c.Items.PaletteDigest, c.Recipes.Digest)
	}
	ids := c.RecipeIDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("recipe ids not sorted: %v", ids)
		}
	}
}

func writeConfigs(t *testing.T, items, recipes string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(items), 0o644); err != nil {
		t.Fatalf("write items: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "recipes.json"), []byte(recipes), 0o644); err != nil {
		t.Fatalf("write recipes: %v", err)
	}
	return dir
}

func TestLoad_RejectsBadDefinitions(t *testing.T) {
	okItems := `[{"id":"COAL","kind":"FUEL","fuel_ticks":20}]`
	cases := map[string][2]string{
		"unknown item":    {`[{"id":"UNOBTAINIUM"}]`, `[]`},
		"duplicate item":  {`[{"id":"COAL"},{"id":"COAL"}]`, `[]`},
		"bad station":     {okItems, `[{"recipe_id":"x","station":"BELT","inputs":[{"item":"COAL","count":1}],"outputs":[{"item":"COAL","count":1}]}]`},
		"two outputs":     {okItems, `[{"recipe_id":"x","station":"CRAFTER","inputs":[{"item":"COAL","count":1}],"outputs":[{"item":"COAL","count":1},{"item":"STONE","count":1}]}]`},
		"zero count":      {okItems, `[{"recipe_id":"x","station":"CRAFTER","inputs":[{"item":"COAL","count":0}],"outputs":[{"item":"COAL","count":1}]}]`},
		"unknown input":   {okItems, `[{"recipe_id":"x","station":"CRAFTER","inputs":[{"item":"GOLD","count":1}],"outputs":[{"item":"COAL","count":1}]}]`},
		"missing id":      {okItems, `[{"station":"CRAFTER"}]`},
		"malformed items": {`{`, `[]`},
	}
	for name, c := range cases {
		dir := writeConfigs(t, c[0], c[1])
		if _, err := Load(dir); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
