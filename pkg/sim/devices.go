package sim

import (
	"math"
	"sync/atomic"

	"github.com/robotalks/thermo.go/pkg/wire"
)

// Faults are injected failures, safe to toggle while serving.
type Faults struct {
	// Silent drops every reply so the supervisor times out.
	Silent atomic.Bool
	// Current makes the pump report a current fault.
	Current atomic.Bool
	// NonConforming makes the pump acknowledge the opposite state.
	NonConforming atomic.Bool
}

// Sensor answers temperature reads from the plant.
type Sensor struct {
	Plant  *Plant
	Faults Faults
}

// NewSensor creates the sensor peripheral.
func NewSensor(plant *Plant) *Sensor {
	return &Sensor{Plant: plant}
}

// Handle implements Handler.
func (s *Sensor) Handle(msg wire.Message) wire.Message {
	if s.Faults.Silent.Load() {
		return nil
	}
	if _, ok := msg.(wire.Read); ok {
		return wire.Temperature{Value: s.Plant.Temperature()}
	}
	return nil
}

// Peripheral wraps the sensor for serving.
func (s *Sensor) Peripheral() *Peripheral {
	return &Peripheral{Name: "sensor", Commands: wire.SensorCommands, Handler: s}
}

// Pump drives the plant pump.
type Pump struct {
	Plant *Plant
	// MaxTemperature is the temperature above which the pump refuses
	// commands with a temperature fault.
	MaxTemperature wire.Celsius
	Faults         Faults
}

// NewPump creates the pump peripheral without a temperature limit.
func NewPump(plant *Plant) *Pump {
	return &Pump{Plant: plant, MaxTemperature: math.MaxInt8}
}

// Handle implements Handler.
func (p *Pump) Handle(msg wire.Message) wire.Message {
	if p.Faults.Silent.Load() {
		return nil
	}
	switch m := msg.(type) {
	case wire.NoOp:
		return wire.NoOp{}
	case wire.Get:
		if fault := p.fault(); fault != nil {
			return fault
		}
		return wire.PumpState{State: p.Plant.Pump()}
	case wire.Set:
		if fault := p.fault(); fault != nil {
			return fault
		}
		p.Plant.SetPump(m.State)
		state := m.State
		if p.Faults.NonConforming.Load() {
			state = opposite(state)
		}
		return wire.PumpState{State: state}
	}
	return nil
}

// Peripheral wraps the pump for serving.
func (p *Pump) Peripheral() *Peripheral {
	return &Peripheral{Name: "pump", Commands: wire.PumpCommands, Handler: p}
}

func (p *Pump) fault() wire.Message {
	if p.Faults.Current.Load() {
		return wire.Fault{Kind: wire.FaultCurrent}
	}
	if p.Plant.Temperature() > p.MaxTemperature {
		return wire.Fault{Kind: wire.FaultTemperature}
	}
	return nil
}

func opposite(s wire.ActuatorState) wire.ActuatorState {
	if s == wire.StateOn {
		return wire.StateOff
	}
	return wire.StateOn
}
