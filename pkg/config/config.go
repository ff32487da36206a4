// Package config holds the supervisor settings.
//
// Settings are resolved in order: built-in defaults, THERMO_*
// environment variables, the TOML file given by -config, then flags set
// explicitly on the command line.
package config

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/thermo.go/pkg/driver"
	"github.com/robotalks/thermo.go/pkg/framing"
	"github.com/robotalks/thermo.go/pkg/hal"
	"github.com/robotalks/thermo.go/pkg/telemetry"
	"github.com/robotalks/thermo.go/pkg/wire"
)

// Config provides the supervisor settings.
type Config struct {
	// Setpoint in °C. The pump runs while the temperature is above it.
	Setpoint int `toml:"setpoint"`

	// SensorURL and PumpURL are link URLs, see package link.
	SensorURL string `toml:"sensor_url"`
	PumpURL   string `toml:"pump_url"`

	SensorPeriod time.Duration `toml:"sensor_period"`
	PumpPeriod   time.Duration `toml:"pump_period"`
	Timeout      time.Duration `toml:"timeout"`

	FramingCapacity int    `toml:"framing_capacity"`
	RxRingSize      int    `toml:"rx_ring_size"`
	DecodePolicy    string `toml:"decode_policy"`

	// MQTTURL enables telemetry when not empty,
	// e.g. mqtt://localhost:1883/thermo/
	MQTTURL           string        `toml:"mqtt_url"`
	TelemetryInterval time.Duration `toml:"telemetry_interval"`
}

var (
	builtinConfig = Config{
		Setpoint:          50,
		SensorURL:         "tcp://localhost:7001",
		PumpURL:           "tcp://localhost:7002",
		SensorPeriod:      driver.DefaultSensorPeriod,
		PumpPeriod:        driver.DefaultPumpPeriod,
		Timeout:           driver.DefaultTimeout,
		FramingCapacity:   framing.DefaultCapacity,
		RxRingSize:        hal.DefaultRxRingSize,
		DecodePolicy:      driver.PolicyFail.String(),
		TelemetryInterval: telemetry.DefaultInterval,
	}

	// defaults and environment, before the file
	envConfig     Config
	defaultConfig Config
	configFile    string
)

func init() {
	envConfig = builtinConfig
	if err := envConfig.ApplyEnv(os.LookupEnv); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}
	defaultConfig = envConfig
	configFile = os.Getenv("THERMO_CONFIG")
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "TOML configuration file.")
	defaultConfig.BindFlags(flag.CommandLine)
}

// BindFlags registers flags for every setting on fs.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Setpoint, "setpoint", c.Setpoint, "Temperature setpoint in °C.")
	fs.StringVar(&c.SensorURL, "sensor", c.SensorURL, "Sensor link URL.")
	fs.StringVar(&c.PumpURL, "pump", c.PumpURL, "Pump link URL.")
	fs.DurationVar(&c.SensorPeriod, "sensor-period", c.SensorPeriod, "Minimum sensor polling period.")
	fs.DurationVar(&c.PumpPeriod, "pump-period", c.PumpPeriod, "Minimum pump update period.")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Exchange timeout.")
	fs.IntVar(&c.FramingCapacity, "framing-capacity", c.FramingCapacity, "Framing buffer capacity in bytes.")
	fs.IntVar(&c.RxRingSize, "rx-ring", c.RxRingSize, "Receive ring size in bytes.")
	fs.StringVar(&c.DecodePolicy, "decode-policy", c.DecodePolicy, "On undecodable bytes: fail or skip-byte.")
	fs.StringVar(&c.MQTTURL, "mqtt", c.MQTTURL, "MQTT broker URL for telemetry.")
	fs.DurationVar(&c.TelemetryInterval, "telemetry-interval", c.TelemetryInterval, "Telemetry publishing interval.")
}

// Default gets the default config, including parsed flags.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load resolves the config after flag.Parse.
func Load() (*Config, error) {
	if configFile == "" {
		conf := NewConfig()
		return conf, conf.Validate()
	}
	conf := envConfig
	if err := conf.LoadFile(configFile); err != nil {
		return nil, err
	}
	fs := flag.NewFlagSet("overrides", flag.ContinueOnError)
	conf.BindFlags(fs)
	var err error
	flag.Visit(func(f *flag.Flag) {
		if fs.Lookup(f.Name) != nil && err == nil {
			err = fs.Set(f.Name, f.Value.String())
		}
	})
	if err != nil {
		return nil, err
	}
	return &conf, conf.Validate()
}

// LoadFile overlays the settings defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return fmt.Errorf("load config %s: unknown key %q", path, keys[0].String())
	}
	return nil
}

// ApplyEnv overlays THERMO_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if val, ok := lookup(name); ok {
			*dst = val
		}
	}
	num := func(name string, dst *int) {
		if val, ok := lookup(name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if val, ok := lookup(name); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	num("THERMO_SETPOINT", &c.Setpoint)
	str("THERMO_SENSOR_URL", &c.SensorURL)
	str("THERMO_PUMP_URL", &c.PumpURL)
	dur("THERMO_SENSOR_PERIOD", &c.SensorPeriod)
	dur("THERMO_PUMP_PERIOD", &c.PumpPeriod)
	dur("THERMO_TIMEOUT", &c.Timeout)
	num("THERMO_FRAMING_CAPACITY", &c.FramingCapacity)
	num("THERMO_RX_RING_SIZE", &c.RxRingSize)
	str("THERMO_DECODE_POLICY", &c.DecodePolicy)
	str("THERMO_MQTT_URL", &c.MQTTURL)
	dur("THERMO_TELEMETRY_INTERVAL", &c.TelemetryInterval)
	return errors.Join(errs...)
}

// Validate checks the settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Setpoint < math.MinInt8 || c.Setpoint > math.MaxInt8 {
		errs = append(errs, fmt.Errorf("setpoint %d out of range", c.Setpoint))
	}
	if c.SensorURL == "" || c.PumpURL == "" {
		errs = append(errs, errors.New("sensor and pump link URLs are required"))
	}
	for name, d := range map[string]time.Duration{
		"sensor period":      c.SensorPeriod,
		"pump period":        c.PumpPeriod,
		"timeout":            c.Timeout,
		"telemetry interval": c.TelemetryInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.FramingCapacity < wire.MaxFrameSize {
		errs = append(errs, fmt.Errorf("framing capacity %d below frame size %d", c.FramingCapacity, wire.MaxFrameSize))
	}
	if c.RxRingSize <= 0 {
		errs = append(errs, errors.New("receive ring size must be positive"))
	}
	if _, ok := driver.ParseDecodePolicy(c.DecodePolicy); !ok {
		errs = append(errs, fmt.Errorf("unknown decode policy %q", c.DecodePolicy))
	}
	return errors.Join(errs...)
}

// SetpointCelsius returns the setpoint on the wire scale.
func (c *Config) SetpointCelsius() wire.Celsius {
	return wire.Celsius(c.Setpoint)
}

// Policy returns the parsed decode policy.
func (c *Config) Policy() driver.DecodePolicy {
	p, _ := driver.ParseDecodePolicy(c.DecodePolicy)
	return p
}
