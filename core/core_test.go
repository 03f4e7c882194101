package core

import (
	"testing"
	"time"
)

func TestNewSubjectNormalizes(t *testing.T) {
	s, err := NewSubject("  aapl ", time.Time{})
	if err != nil {
		t.Fatalf("NewSubject: %v", err)
	}
	if s.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", s.Symbol)
	}
	if s.AsOf.IsZero() {
		t.Error("AsOf should default to now")
	}
}

func TestNewSubjectRejectsEmpty(t *testing.T) {
	_, err := NewSubject("   ", time.Now())
	if !IsOrchestrationError(err, ConfigInvalid) {
		t.Fatalf("want ConfigInvalid, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero timeout", func(c *Config) { c.PerSourceTimeout = 0 }, true},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }, true},
		{"negative top-k", func(c *Config) { c.MemoryTopK = -1 }, true},
		{"unknown dimension", func(c *Config) { c.EnabledDimensions = []Dimension{"astrology"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDimensionsDefaultsToAll(t *testing.T) {
	cfg := Config{PerSourceTimeout: time.Second, MaxConcurrency: 1}
	if got := len(cfg.Dimensions()); got != len(AllDimensions) {
		t.Errorf("Dimensions() len = %d, want %d", got, len(AllDimensions))
	}
	if !cfg.DimensionEnabled(DimensionTechnical) {
		t.Error("technical should be enabled by default")
	}
}

func TestFindingValidate(t *testing.T) {
	f := Finding{AgentKind: DimensionSentiment, Subject: "ACME", Confidence: 0.7}
	if err := f.Validate(); err == nil {
		t.Error("finding with no support should be invalid")
	}

	f.DerivedFrom = []string{"obs-1"}
	if err := f.Validate(); err != nil {
		t.Errorf("supported finding should be valid, got %v", err)
	}

	deg := DegradedFinding(DimensionFilings, "ACME", "Timeout")
	if err := deg.Validate(); err != nil {
		t.Errorf("degraded placeholder should be valid, got %v", err)
	}
	if deg.Confidence != 0 || !deg.Degraded || deg.Cause != "Timeout" {
		t.Errorf("degraded placeholder malformed: %+v", deg)
	}
}

func TestRunResultSealOnce(t *testing.T) {
	sub, _ := NewSubject("ACME", time.Now())
	r := NewRunResult(sub)
	r.AddFinding(Finding{AgentKind: DimensionSentiment, Subject: "ACME", DerivedFrom: []string{"o"}, Confidence: 0.5})
	r.Seal("first memo")
	if !r.Sealed() {
		t.Fatal("result should be sealed")
	}

	r.Seal("second memo")
	if r.Memo != "first memo" {
		t.Errorf("seal must be idempotent, memo = %q", r.Memo)
	}

	r.AddFinding(Finding{AgentKind: DimensionTechnical})
	if len(r.Findings) != 1 {
		t.Error("sealed result must not accept findings")
	}
}
