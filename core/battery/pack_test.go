package battery

import (
	"math"
	"math/rand"
	"testing"
)

func newTestPack(t *testing.T, cfg Config) ElectricalModel {
	t.Helper()
	m, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

func TestPackModel_FirstStepSeedsState(t *testing.T) {
	m := newTestPack(t, validConfig())
	excess, err := m.Charge(0)
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if excess != 0 {
		t.Errorf("excess = %v, want 0", excess)
	}
	if m.SoC() != 0.5 || m.SoE() != 0.5 {
		t.Errorf("state moved at zero power: soc %v soe %v", m.SoC(), m.SoE())
	}
	if got := m.DynamicEfficiency(); got != 0.95 {
		t.Errorf("efficiency at rest = %v, want inverter efficiency 0.95", got)
	}
	hist := m.History()
	if len(hist) != 1 {
		t.Fatalf("history length = %d, want 1", len(hist))
	}
	if hist[0].CurrentA != 0 || hist[0].PowerKW != 0 {
		t.Errorf("rest record = %+v", hist[0])
	}
	if hist[0].VoltageV <= 0 {
		t.Errorf("voltage = %v, want positive", hist[0].VoltageV)
	}
}

func TestPackModel_ChargeStoresEnergy(t *testing.T) {
	m := newTestPack(t, validConfig())
	excess, err := m.Charge(10)
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if excess != 0 {
		t.Errorf("excess = %v, want 0", excess)
	}
	// On the first step Voc and the seeded terminal voltage coincide, so the
	// stored energy equals the requested energy exactly.
	wantSoE := 0.5 + 10.0/118.4
	if math.Abs(m.SoE()-wantSoE) > 1e-9 {
		t.Errorf("SoE = %v, want %v", m.SoE(), wantSoE)
	}
	if m.SoC() <= 0.5 {
		t.Errorf("SoC = %v, want above 0.5", m.SoC())
	}
	hist := m.History()
	if len(hist) != 1 || hist[0].CurrentA >= 0 {
		t.Fatalf("expected one record with negative charging current, got %+v", hist)
	}
	if eta := m.DynamicEfficiency(); eta >= 0.95 || eta < 0.94 {
		t.Errorf("dynamic efficiency = %v, want slightly under 0.95", eta)
	}
	if m.SOH() >= 1 {
		t.Errorf("SOH = %v, want below 1 after throughput", m.SOH())
	}
	if m.ThroughputAh() <= 0 {
		t.Errorf("throughput = %v, want positive", m.ThroughputAh())
	}
}

func TestPackModel_DischargeSuppliesEnergy(t *testing.T) {
	m := newTestPack(t, validConfig())
	lack, err := m.Discharge(10)
	if err != nil {
		t.Fatalf("Discharge failed: %v", err)
	}
	if lack != 0 {
		t.Errorf("lack = %v, want 0", lack)
	}
	wantSoE := 0.5 - 10.0/118.4
	if math.Abs(m.SoE()-wantSoE) > 1e-9 {
		t.Errorf("SoE = %v, want %v", m.SoE(), wantSoE)
	}
	hist := m.History()
	if len(hist) != 1 || hist[0].CurrentA <= 0 {
		t.Fatalf("expected one record with positive discharging current, got %+v", hist)
	}
	if eta := m.DynamicEfficiency(); eta >= 0.95 {
		t.Errorf("dynamic efficiency = %v, want under 0.95 while discharging", eta)
	}
}

func TestPackModel_VoltageLag(t *testing.T) {
	m := newTestPack(t, validConfig())
	if _, err := m.Charge(10); err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if _, err := m.Charge(10); err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	hist := m.History()
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	// Charging raises the terminal voltage above open circuit, and the next
	// step derives its current from that stored voltage.
	if hist[0].VoltageV <= 371.15 {
		t.Errorf("terminal voltage = %v, want above open-circuit 371.15", hist[0].VoltageV)
	}
	if math.Abs(hist[1].CurrentA) >= math.Abs(hist[0].CurrentA) {
		t.Errorf("current magnitudes %v, %v: second step should draw less at higher stored voltage",
			hist[0].CurrentA, hist[1].CurrentA)
	}
}

func TestPackModel_ExcessAtUpperRail(t *testing.T) {
	cfg := validConfig()
	cfg.InitialSoC = 0.88
	cfg.InitialSoE = 0.88
	m := newTestPack(t, cfg)
	excess, err := m.Charge(10)
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	want := 10 - 0.02*118.4
	if math.Abs(excess-want) > 1e-9 {
		t.Errorf("excess = %v, want %v", excess, want)
	}
	if m.SoE() != 0.9 {
		t.Errorf("SoE = %v, want clamped at 0.9", m.SoE())
	}
	if m.SoC() > 0.9 {
		t.Errorf("SoC = %v, want at most 0.9", m.SoC())
	}
}

func TestPackModel_LackAtLowerRail(t *testing.T) {
	cfg := validConfig()
	cfg.InitialSoC = 0.12
	cfg.InitialSoE = 0.12
	m := newTestPack(t, cfg)
	lack, err := m.Discharge(10)
	if err != nil {
		t.Fatalf("Discharge failed: %v", err)
	}
	want := 10 - 0.02*118.4
	if math.Abs(lack-want) > 1e-9 {
		t.Errorf("lack = %v, want %v", lack, want)
	}
	if m.SoE() != 0.1 {
		t.Errorf("SoE = %v, want clamped at 0.1", m.SoE())
	}
	if m.SoC() < 0.1 {
		t.Errorf("SoC = %v, want at least 0.1", m.SoC())
	}
}

func TestPackModel_TransitionClipsReturnedEnergy(t *testing.T) {
	cfg := validConfig()
	m := newTestPack(t, cfg)
	req := TransitionRequest{
		ExternalEnergyKWh: 10,
		MinCapacityKWh:    cfg.MinCapacityKWh(),
		MaxCapacityKWh:    cfg.MaxCapacityKWh(),
		MaxChargeKWh:      5,
		MaxDischargeKWh:   5,
		Efficiency:        cfg.InverterEff,
		Step:              0,
	}
	internal, err := m.Transition(req)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if math.Abs(internal-5) > 1e-9 {
		t.Errorf("internal = %v, want clipped to 5", internal)
	}

	req.ExternalEnergyKWh = -10
	req.Step = 1
	internal, err = m.Transition(req)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if math.Abs(internal+5) > 1e-9 {
		t.Errorf("internal = %v, want clipped to -5", internal)
	}
}

func TestPackModel_HistoryCapped(t *testing.T) {
	cfg := validConfig()
	cfg.HistoryCap = 5
	m := newTestPack(t, cfg)
	for k := 0; k < 8; k++ {
		if _, err := m.Charge(1); err != nil {
			t.Fatalf("Charge %d failed: %v", k, err)
		}
	}
	hist := m.History()
	if len(hist) != 5 {
		t.Fatalf("history length = %d, want 5", len(hist))
	}
	if hist[0].Time != 3 {
		t.Errorf("oldest record time = %v, want 3", hist[0].Time)
	}
	if hist[4].Time != 7 {
		t.Errorf("newest record time = %v, want 7", hist[4].Time)
	}
}

func TestPackModel_SnapshotRestore(t *testing.T) {
	m := newTestPack(t, validConfig())
	for k := 0; k < 3; k++ {
		if _, err := m.Charge(5); err != nil {
			t.Fatalf("Charge failed: %v", err)
		}
	}
	snap := m.Snapshot()
	for k := 0; k < 2; k++ {
		if _, err := m.Discharge(8); err != nil {
			t.Fatalf("Discharge failed: %v", err)
		}
	}
	m.Restore(snap)
	if m.SoC() != snap.SoC || m.SoE() != snap.SoE {
		t.Errorf("restored state soc %v soe %v, want %v %v", m.SoC(), m.SoE(), snap.SoC, snap.SoE)
	}
	if m.SOH() != snap.SOH || m.ThroughputAh() != snap.ThroughputAh {
		t.Errorf("restored health %v/%v, want %v/%v", m.SOH(), m.ThroughputAh(), snap.SOH, snap.ThroughputAh)
	}
	if m.DynamicEfficiency() != snap.Efficiency {
		t.Errorf("restored efficiency = %v, want %v", m.DynamicEfficiency(), snap.Efficiency)
	}
	// The restored step count keeps the run going without re-seeding.
	before := m.SoE()
	if _, err := m.Charge(5); err != nil {
		t.Fatalf("Charge after restore failed: %v", err)
	}
	if m.SoE() <= before {
		t.Errorf("SoE = %v, want above %v after charging", m.SoE(), before)
	}
}

func TestPackModel_ResetRestoresInitialState(t *testing.T) {
	m := newTestPack(t, validConfig())
	for k := 0; k < 4; k++ {
		if _, err := m.Charge(5); err != nil {
			t.Fatalf("Charge failed: %v", err)
		}
	}
	m.Reset()
	if m.SoC() != 0.5 || m.SoE() != 0.5 {
		t.Errorf("state after reset: soc %v soe %v, want 0.5", m.SoC(), m.SoE())
	}
	if m.SOH() != 1 {
		t.Errorf("SOH after reset = %v, want 1", m.SOH())
	}
	if len(m.History()) != 0 {
		t.Errorf("history after reset has %d records", len(m.History()))
	}
}

func TestPackModel_NegativePowerRejected(t *testing.T) {
	m := newTestPack(t, validConfig())
	if _, err := m.Charge(-1); err == nil {
		t.Error("negative charge power accepted")
	}
	if _, err := m.Discharge(-1); err == nil {
		t.Error("negative discharge power accepted")
	}
}

func TestPackModel_StateStaysWithinBounds(t *testing.T) {
	cfg := validConfig()
	m := newTestPack(t, cfg)
	rng := rand.New(rand.NewSource(42))
	prevSOH := m.SOH()
	for k := 0; k < 400; k++ {
		p := rng.Float64() * 30
		var err error
		if rng.Intn(2) == 0 {
			_, err = m.Charge(p)
		} else {
			_, err = m.Discharge(p)
		}
		if err != nil {
			t.Fatalf("step %d failed: %v", k, err)
		}
		if m.SoC() < cfg.SoEMin-1e-9 || m.SoC() > cfg.SoEMax+1e-9 {
			t.Fatalf("step %d: SoC %v escaped [%v, %v]", k, m.SoC(), cfg.SoEMin, cfg.SoEMax)
		}
		if m.SoE() < cfg.SoEMin-1e-9 || m.SoE() > cfg.SoEMax+1e-9 {
			t.Fatalf("step %d: SoE %v escaped [%v, %v]", k, m.SoE(), cfg.SoEMin, cfg.SoEMax)
		}
		if eta := m.DynamicEfficiency(); eta <= 0 || eta > 1 {
			t.Fatalf("step %d: efficiency %v outside (0,1]", k, eta)
		}
		if m.SOH() > prevSOH {
			t.Fatalf("step %d: SOH increased %v -> %v", k, prevSOH, m.SOH())
		}
		prevSOH = m.SOH()
	}
}
