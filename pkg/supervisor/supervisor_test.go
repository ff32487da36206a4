package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/thermo.go/pkg/config"
	"github.com/robotalks/thermo.go/pkg/driver"
	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/link"
	"github.com/robotalks/thermo.go/pkg/sim"
	"github.com/robotalks/thermo.go/pkg/wire"
)

type simEnv struct {
	plant  *sim.Plant
	sensor *sim.Sensor
	pump   *sim.Pump
	conf   *config.Config
}

func newSimEnv(t *testing.T, ctx context.Context) *simEnv {
	e := &simEnv{plant: sim.NewPlant(70, nil)}
	e.plant.HeatRate, e.plant.CoolRate = 0, 0
	e.sensor = sim.NewSensor(e.plant)
	e.pump = sim.NewPump(e.plant)

	serve := func(p *sim.Peripheral) string {
		ln, err := link.Listen("tcp://127.0.0.1:0")
		require.NoError(t, err)
		go p.ServeListener(ctx, ln)
		return ln.URL()
	}
	e.conf = config.NewConfig()
	e.conf.Setpoint = 60
	e.conf.SensorURL = serve(e.sensor.Peripheral())
	e.conf.PumpURL = serve(e.pump.Peripheral())
	e.conf.SensorPeriod = 10 * time.Millisecond
	e.conf.PumpPeriod = 10 * time.Millisecond
	e.conf.Timeout = 50 * time.Millisecond
	e.conf.MQTTURL = ""
	require.NoError(t, e.conf.Validate())
	return e
}

func TestSupervisorRegulates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newSimEnv(t, ctx)
	s, err := New(e.conf)
	require.NoError(t, err)
	defer s.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return e.plant.Pump() == wire.StateOn && len(s.Model.History()) > 0
	}, 2*time.Second, 10*time.Millisecond)
	e.plant.SetTemperature(55)
	require.Eventually(t, func() bool {
		return e.plant.Pump() == wire.StateOff
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
}

func TestSupervisorDriversFailIndependently(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newSimEnv(t, ctx)
	s, err := New(e.conf)
	require.NoError(t, err)
	defer s.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	require.Eventually(t, func() bool {
		return len(s.Model.History()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	e.pump.Faults.Current.Store(true)
	require.Eventually(t, func() bool {
		return s.Links[1].Stats().Failures > 0
	}, 2*time.Second, 10*time.Millisecond)

	// the sensor keeps polling.
	exchanges := s.Links[0].Stats().Exchanges
	require.Eventually(t, func() bool {
		return s.Links[0].Stats().Exchanges > exchanges+2
	}, 2*time.Second, 10*time.Millisecond)

	e.sensor.Faults.Silent.Store(true)
	select {
	case err = <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor still running")
	}
	var agg *fx.AggregatedError
	require.True(t, errors.As(err, &agg))
	require.Len(t, agg.Errors, 2)
	var faultErr *driver.FaultError
	require.ErrorAs(t, err, &faultErr)
	require.Equal(t, wire.FaultCurrent, faultErr.Fault)
	require.ErrorIs(t, err, driver.ErrTimeout)
}

func TestNewFailsOnBadLink(t *testing.T) {
	conf := config.NewConfig()
	conf.SensorURL = "udp://127.0.0.1:1"
	_, err := New(conf)
	require.ErrorIs(t, err, link.ErrUnsupportedScheme)
}
