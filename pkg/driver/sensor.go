package driver

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/wire"
)

// DefaultSensorPeriod is the minimum period between measurements.
const DefaultSensorPeriod = time.Second

// TemperatureSink receives measurements.
type TemperatureSink interface {
	PushTemperature(wire.Celsius)
}

// SensorDriver polls the temperature sensor.
type SensorDriver struct {
	Engine *Engine
	Model  TemperatureSink
	Period time.Duration
}

// NewSensorDriver creates a SensorDriver.
func NewSensorDriver(engine *Engine, model TemperatureSink) *SensorDriver {
	return &SensorDriver{Engine: engine, Model: model, Period: DefaultSensorPeriod}
}

// Name implements Named.
func (d *SensorDriver) Name() string {
	return d.Engine.Name
}

// ReadTemperature requests one measurement.
func (d *SensorDriver) ReadTemperature(ctx context.Context) (wire.Celsius, error) {
	cmd := wire.Read{}
	reply, err := d.Engine.Exchange(ctx, cmd)
	if err != nil {
		return 0, err
	}
	switch m := reply.(type) {
	case wire.Temperature:
		glog.V(3).Infof("%s: temperature %d", d.Name(), m.Value)
		return m.Value, nil
	case wire.Fault:
		return 0, d.Engine.fail(KindFault, &FaultError{Fault: m.Kind})
	}
	return 0, d.Engine.fail(KindNonConformance, &NonConformanceError{Command: cmd, Reply: reply})
}

// Run implements Runnable.
// Any failure stops the driver.
func (d *SensorDriver) Run(ctx context.Context) error {
	if err := d.Engine.Source.Start(); err != nil {
		return err
	}
	for {
		var value wire.Celsius
		err := cycle(ctx, d.Period, func(ctx context.Context) (err error) {
			value, err = d.ReadTemperature(ctx)
			return
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			glog.Errorf("%s: stopped: %v", d.Name(), err)
			return err
		}
		d.Model.PushTemperature(value)
	}
}
