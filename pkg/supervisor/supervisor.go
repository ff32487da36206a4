// Package supervisor wires the links, drivers, control model and
// telemetry of a thermal regulation supervisor.
package supervisor

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/config"
	"github.com/robotalks/thermo.go/pkg/driver"
	"github.com/robotalks/thermo.go/pkg/env"
	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/model"
	"github.com/robotalks/thermo.go/pkg/telemetry"
	"github.com/robotalks/thermo.go/pkg/wire"
)

// AppName identifies the supervisor, e.g. in the machine ID.
const AppName = "thermod"

// Supervisor runs both drivers against the shared model.
// Each driver stops on its first failure without stopping the other;
// Run returns once both stopped.
type Supervisor struct {
	Config    *config.Config
	Model     *model.Model
	Sensor    *driver.SensorDriver
	Pump      *driver.PumpDriver
	Links     []*Link
	Publisher *telemetry.Publisher
}

// New opens the links and creates the drivers.
func New(conf *config.Config) (*Supervisor, error) {
	s := &Supervisor{
		Config: conf,
		Model:  model.New(conf.SetpointCelsius()),
	}
	sensorLink, err := Dial("sensor", conf.SensorURL, wire.SensorReplies, conf)
	if err != nil {
		return nil, err
	}
	pumpLink, err := Dial("pump", conf.PumpURL, wire.PumpReplies, conf)
	if err != nil {
		sensorLink.Close()
		return nil, err
	}
	s.Links = []*Link{sensorLink, pumpLink}
	s.Sensor = driver.NewSensorDriver(sensorLink.Engine, s.Model)
	s.Sensor.Period = conf.SensorPeriod
	s.Pump = driver.NewPumpDriver(pumpLink.Engine, s.Model)
	s.Pump.Period = conf.PumpPeriod

	if conf.MQTTURL != "" {
		q, err := telemetry.NewQueueFromURL(conf.MQTTURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Publisher = telemetry.NewPublisher(q, s.Model, sensorLink, pumpLink)
		s.Publisher.Interval = conf.TelemetryInterval
		s.Publisher.Meta = telemetry.Meta{
			ID:       env.InstanceID(AppName),
			Setpoint: conf.Setpoint,
			Links:    map[string]string{"sensor": conf.SensorURL, "pump": conf.PumpURL},
		}
	}
	return s, nil
}

// Run implements Runnable.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lock sync.Mutex
	running := 2
	runner := fx.NewRunnerWith(ctx).WithExitHandler(func(name string, err error) {
		if s.Publisher != nil {
			s.Publisher.ReportExit(name, err)
		}
		if name != s.Sensor.Name() && name != s.Pump.Name() {
			return
		}
		lock.Lock()
		defer lock.Unlock()
		if running--; running == 0 {
			glog.Info("all drivers stopped")
			cancel()
		}
	})
	for _, l := range s.Links {
		runner.Go(l)
	}
	if s.Publisher != nil {
		runner.Go(s.Publisher)
	}
	glog.Infof("regulating at %d°C", s.Model.Setpoint())
	runner.Go(s.Sensor, s.Pump)
	return runner.Wait()
}

// Close closes the links.
func (s *Supervisor) Close() error {
	var errs fx.AggregatedError
	for _, l := range s.Links {
		errs.Add(l.Close())
	}
	return errs.Aggregate()
}
