package sim

import (
	"flag"
	"math"

	"github.com/robotalks/thermo.go/pkg/wire"
)

// Config defines the simulated peripherals.
type Config struct {
	SensorURL      string
	PumpURL        string
	Initial        int
	HeatRate       float64
	CoolRate       float64
	MaxTemperature int
}

var defaultConfig = Config{
	SensorURL:      "tcp://:7001",
	PumpURL:        "tcp://:7002",
	Initial:        35,
	HeatRate:       DefaultHeatRate,
	CoolRate:       DefaultCoolRate,
	MaxTemperature: math.MaxInt8,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.SensorURL, "sensor-listen", defaultConfig.SensorURL, "Link URL serving the sensor.")
	flag.StringVar(&defaultConfig.PumpURL, "pump-listen", defaultConfig.PumpURL, "Link URL serving the pump.")
	flag.IntVar(&defaultConfig.Initial, "initial", defaultConfig.Initial, "Initial temperature (°C).")
	flag.Float64Var(&defaultConfig.HeatRate, "heat-rate", defaultConfig.HeatRate, "Heating rate (°C/s) while the pump is off.")
	flag.Float64Var(&defaultConfig.CoolRate, "cool-rate", defaultConfig.CoolRate, "Cooling rate (°C/s) while the pump is on.")
	flag.IntVar(&defaultConfig.MaxTemperature, "max-temp", defaultConfig.MaxTemperature, "Temperature (°C) above which the pump reports a fault.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates the default configuration.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Bench is a plant with both peripherals.
type Bench struct {
	Plant  *Plant
	Sensor *Sensor
	Pump   *Pump
}

// NewBench creates the plant and peripherals.
func (c *Config) NewBench() *Bench {
	plant := NewPlant(wire.Celsius(c.Initial), nil)
	plant.HeatRate, plant.CoolRate = c.HeatRate, c.CoolRate
	pump := NewPump(plant)
	pump.MaxTemperature = wire.Celsius(c.MaxTemperature)
	return &Bench{Plant: plant, Sensor: NewSensor(plant), Pump: pump}
}

// Endpoints returns the Runnables serving the peripherals.
func (c *Config) Endpoints(b *Bench) []*Endpoint {
	return []*Endpoint{
		{Peripheral: b.Sensor.Peripheral(), URL: c.SensorURL},
		{Peripheral: b.Pump.Peripheral(), URL: c.PumpURL},
	}
}
