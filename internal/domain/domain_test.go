package domain

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestMiner_TurnOn(t *testing.T) {
	tests := []struct {
		from    MinerStatus
		want    MinerStatus
		wantErr bool
	}{
		{MinerStatusOff, MinerStatusStarting, false},
		{MinerStatusError, MinerStatusStarting, false},
		{MinerStatusUnknown, MinerStatusStarting, false},
		{"", MinerStatusStarting, false},
		{MinerStatusOn, MinerStatusOn, false},
		{MinerStatusStarting, MinerStatusStarting, false},
		{MinerStatusStopping, MinerStatusStopping, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			m := &Miner{Status: tt.from}
			err := m.TurnOn()
			if (err != nil) != tt.wantErr {
				t.Fatalf("TurnOn() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("TurnOn() error = %v, want ErrInvalidTransition", err)
			}
			if m.Status != tt.want {
				t.Errorf("Status = %q, want %q", m.Status, tt.want)
			}
		})
	}
}

func TestMiner_TurnOff(t *testing.T) {
	tests := []struct {
		from    MinerStatus
		want    MinerStatus
		wantErr bool
	}{
		{MinerStatusOn, MinerStatusStopping, false},
		{MinerStatusError, MinerStatusStopping, false},
		{MinerStatusOff, MinerStatusOff, false},
		{MinerStatusStopping, MinerStatusStopping, false},
		{MinerStatusStarting, MinerStatusStarting, true},
		{MinerStatusUnknown, MinerStatusUnknown, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			m := &Miner{Status: tt.from}
			err := m.TurnOff()
			if (err != nil) != tt.wantErr {
				t.Fatalf("TurnOff() error = %v, wantErr %v", err, tt.wantErr)
			}
			if m.Status != tt.want {
				t.Errorf("Status = %q, want %q", m.Status, tt.want)
			}
		})
	}
}

func TestMiner_UpdateStatus(t *testing.T) {
	m := &Miner{Status: MinerStatusStarting, PowerConsumption: 10}
	m.UpdateStatus(MinerStatusOn, nil)
	if m.Status != MinerStatusOn || m.PowerConsumption != 10 {
		t.Errorf("after nil power: %q/%v, want on/10", m.Status, m.PowerConsumption)
	}
	p := Watts(3100)
	m.UpdateStatus(MinerStatusOn, &p)
	if m.PowerConsumption != 3100 {
		t.Errorf("PowerConsumption = %v, want 3100", m.PowerConsumption)
	}
}

func TestParseMinerStatus(t *testing.T) {
	if got := ParseMinerStatus("on"); got != MinerStatusOn {
		t.Errorf("ParseMinerStatus(on) = %q", got)
	}
	if got := ParseMinerStatus("sleeping"); got != MinerStatusUnknown {
		t.Errorf("ParseMinerStatus(sleeping) = %q, want unknown", got)
	}
}

func TestBatteryAndGridDirections(t *testing.T) {
	charging := BatteryState{CurrentPower: 800}
	if charging.ChargingPower() != 800 || charging.DischargingPower() != 0 {
		t.Errorf("charging battery = %v/%v", charging.ChargingPower(), charging.DischargingPower())
	}
	discharging := BatteryState{CurrentPower: -450}
	if discharging.ChargingPower() != 0 || discharging.DischargingPower() != 450 {
		t.Errorf("discharging battery = %v/%v", discharging.ChargingPower(), discharging.DischargingPower())
	}

	importing := GridState{CurrentPower: 1200}
	if importing.ImportingPower() != 1200 || importing.ExportingPower() != 0 {
		t.Errorf("importing grid = %v/%v", importing.ImportingPower(), importing.ExportingPower())
	}
	exporting := GridState{CurrentPower: -300}
	if exporting.ImportingPower() != 0 || exporting.ExportingPower() != 300 {
		t.Errorf("exporting grid = %v/%v", exporting.ImportingPower(), exporting.ExportingPower())
	}
}

func TestEnergyStateSnapshot_Surplus(t *testing.T) {
	s := &EnergyStateSnapshot{Production: 4000, Consumption: LoadState{CurrentPower: 1500}}
	if got := s.Surplus(); got != 2500 {
		t.Errorf("Surplus() = %v, want 2500", got)
	}
	s.Consumption.CurrentPower = 5000
	if got := s.Surplus(); got != -1000 {
		t.Errorf("Surplus() = %v, want -1000", got)
	}
}

func TestForecastData_PowerAt(t *testing.T) {
	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &ForecastData{Intervals: []ForecastInterval{
		{
			Start: start, End: start.Add(time.Hour),
			PowerPoints: []ForecastPowerPoint{{Timestamp: start, Power: 1000}, {Timestamp: start.Add(30 * time.Minute), Power: 2000}},
		},
		{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour)},
	}}

	if p, ok := f.PowerAt(start.Add(10 * time.Minute)); !ok || p != 1500 {
		t.Errorf("PowerAt(12:10) = %v, %v; want 1500, true", p, ok)
	}
	if p, ok := f.PowerAt(start.Add(time.Hour)); !ok || p != 0 {
		t.Errorf("PowerAt(13:00) = %v, %v; want 0, true (no points)", p, ok)
	}
	if _, ok := f.PowerAt(start.Add(-time.Minute)); ok {
		t.Error("PowerAt before the first interval should miss")
	}
	if d := f.Intervals[0].Duration(); d != time.Hour {
		t.Errorf("Duration() = %v, want 1h", d)
	}
}

func TestEnergySource_HasStorage(t *testing.T) {
	if (&EnergySource{}).HasStorage() {
		t.Error("HasStorage() = true without capacity")
	}
	if !(&EnergySource{StorageCapacity: 10_000}).HasStorage() {
		t.Error("HasStorage() = false with capacity")
	}
}

func TestOptimizationUnit_References(t *testing.T) {
	u := &OptimizationUnit{TargetMinerIDs: []string{"m-1", "", "m-2", "m-1"}}
	u.Normalize()
	if !slices.Equal(u.TargetMinerIDs, []string{"m-1", "m-2"}) {
		t.Errorf("Normalize() miners = %v, want [m-1 m-2]", u.TargetMinerIDs)
	}
	if u.NotifierIDs == nil {
		t.Error("Normalize() left NotifierIDs nil")
	}

	u.AddTargetMiner("m-2")
	u.AddTargetMiner("m-3")
	u.RemoveTargetMiner("m-1")
	if !slices.Equal(u.TargetMinerIDs, []string{"m-2", "m-3"}) {
		t.Errorf("miners = %v, want [m-2 m-3]", u.TargetMinerIDs)
	}

	u.AddNotifier("n-1")
	u.AddNotifier("n-1")
	u.RemoveNotifier("missing")
	if !slices.Equal(u.NotifierIDs, []string{"n-1"}) {
		t.Errorf("notifiers = %v, want [n-1]", u.NotifierIDs)
	}
}
