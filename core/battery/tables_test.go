package battery

import (
	"math"
	"testing"

	"github.com/microgrid-lab/mgsim/core/model"
)

func refCellConfig(chem model.Chemistry) Config {
	cfg := Config{
		Chemistry:       chem,
		Kind:            model.ModelPack,
		SeriesCells:     1,
		ParallelStrings: 1,
		PackCapacityAh:  cellSpecs[chem].capacityAh,
		InverterEff:     1,
		DeltaHours:      1,
		SoEMax:          1,
		InitialSoC:      0.5,
		InitialSoE:      0.5,
		AmbientTempC:    25,
		HistoryCap:      10,
	}
	return cfg
}

func TestLoadTables_AllChemistries(t *testing.T) {
	for _, chem := range []model.Chemistry{model.ChemistryNMC, model.ChemistryNCA, model.ChemistryLFP} {
		tables, err := loadTables(refCellConfig(chem))
		if err != nil {
			t.Fatalf("%s: loadTables failed: %v", chem, err)
		}
		if v0, v1 := tables.Voc(0, 25), tables.Voc(1, 25); v0 >= v1 {
			t.Errorf("%s: Voc not increasing over SoC: %v >= %v", chem, v0, v1)
		}
		if r0, r1 := tables.R0(0, 25), tables.R0(1, 25); r0 <= r1 {
			t.Errorf("%s: R0 not decreasing over SoC: %v <= %v", chem, r0, r1)
		}
	}
}

func TestTableSet_TemperatureBlend(t *testing.T) {
	tables, err := loadTables(refCellConfig(model.ChemistryNMC))
	if err != nil {
		t.Fatalf("loadTables failed: %v", err)
	}
	cases := []struct {
		tempC float64
		want  float64
	}{
		{20, 3.710},
		{40, 3.716},
		{30, 3.713},
		{5, 3.710},  // below range holds the 20 °C curve
		{60, 3.716}, // above range holds the 40 °C curve
	}
	for _, c := range cases {
		got := tables.Voc(0.5, c.tempC)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Voc(0.5, %v) = %v, want %v", c.tempC, got, c.want)
		}
	}
}

func TestTableSet_ClampsOutsideSoCDomain(t *testing.T) {
	tables, err := loadTables(refCellConfig(model.ChemistryNMC))
	if err != nil {
		t.Fatalf("loadTables failed: %v", err)
	}
	if got := tables.Voc(-0.3, 20); math.Abs(got-3.000) > 1e-9 {
		t.Errorf("Voc below domain = %v, want endpoint 3.000", got)
	}
	if got := tables.Voc(1.7, 20); math.Abs(got-4.185) > 1e-9 {
		t.Errorf("Voc above domain = %v, want endpoint 4.185", got)
	}
}

func TestLoadTables_PackScaling(t *testing.T) {
	cfg := refCellConfig(model.ChemistryNMC)
	cfg.SeriesCells = 100
	cfg.ParallelStrings = 10
	cfg.PackCapacityAh = 32
	tables, err := loadTables(cfg)
	if err != nil {
		t.Fatalf("loadTables failed: %v", err)
	}
	// Voc scales with Ns, R0 with (Ns/Np)*(refAh/c_n) = 10*0.1 = 1.
	if got := tables.Voc(0.5, 20); math.Abs(got-371.0) > 1e-9 {
		t.Errorf("pack Voc(0.5, 20) = %v, want 371.0", got)
	}
	if got := tables.R0(0.5, 20); math.Abs(got-0.0390) > 1e-12 {
		t.Errorf("pack R0(0.5, 20) = %v, want 0.0390", got)
	}
}

func TestParseTable_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"bad float", "soc,a,b,c,d\n0.0,x,2,3,4\n0.5,1,2,3,4\n1.0,1,2,3,4\n"},
		{"wrong field count", "soc,a,b,c,d\n0.0,1,2,3\n0.5,1,2,3,4\n1.0,1,2,3,4\n"},
		{"too few rows", "soc,a,b,c,d\n0.0,1,2,3,4\n"},
	}
	for _, c := range cases {
		if _, err := parseTable(c.name, []byte(c.raw)); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestLinspace(t *testing.T) {
	xs := linspace(0, 1, 21)
	if len(xs) != 21 {
		t.Fatalf("length = %d, want 21", len(xs))
	}
	if xs[0] != 0 || xs[20] != 1 {
		t.Errorf("endpoints = %v, %v, want 0, 1", xs[0], xs[20])
	}
	if math.Abs(xs[10]-0.5) > 1e-12 {
		t.Errorf("midpoint = %v, want 0.5", xs[10])
	}
}
