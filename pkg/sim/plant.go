package sim

import (
	"math"
	"sync"
	"time"

	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/wire"
)

// Default plant rates in °C per second.
const (
	DefaultHeatRate = 0.5
	DefaultCoolRate = 1.0
)

// Plant is a thermal body heated by its surroundings and cooled while
// the pump runs. The temperature is estimated lazily from the time
// elapsed since the last estimate.
type Plant struct {
	HeatRate float64
	CoolRate float64
	Clock    fx.TimeSource

	temperature float64
	pump        wire.ActuatorState
	at          time.Time
	lock        sync.Mutex
}

// NewPlant creates a Plant with the pump off.
func NewPlant(initial wire.Celsius, clock fx.TimeSource) *Plant {
	if clock == nil {
		clock = fx.SystemTime
	}
	return &Plant{
		HeatRate:    DefaultHeatRate,
		CoolRate:    DefaultCoolRate,
		Clock:       clock,
		temperature: float64(initial),
		pump:        wire.StateOff,
		at:          clock.Time(),
	}
}

// Temperature returns the current temperature.
func (p *Plant) Temperature() wire.Celsius {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.estimate()
}

// Pump returns the pump state.
func (p *Plant) Pump() wire.ActuatorState {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.pump
}

// SetPump changes the pump state from now on.
func (p *Plant) SetPump(state wire.ActuatorState) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.estimate()
	p.pump = state
}

// SetTemperature overrides the current temperature.
func (p *Plant) SetTemperature(value wire.Celsius) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.estimate()
	p.temperature = float64(value)
}

func (p *Plant) estimate() wire.Celsius {
	now := p.Clock.Time()
	if dt := now.Sub(p.at).Seconds(); dt > 0 {
		if p.pump == wire.StateOn {
			p.temperature -= p.CoolRate * dt
		} else {
			p.temperature += p.HeatRate * dt
		}
		p.temperature = math.Max(math.MinInt8, math.Min(math.MaxInt8, p.temperature))
	}
	p.at = now
	return wire.Celsius(math.Round(p.temperature))
}
