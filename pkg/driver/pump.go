package driver

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/wire"
)

// DefaultPumpPeriod is the minimum period between pump updates.
const DefaultPumpPeriod = 200 * time.Millisecond

// ActuatorModel provides the pump target and records applied states.
type ActuatorModel interface {
	Target() wire.ActuatorState
	PushActuatorState(wire.ActuatorState)
}

// PumpDriver keeps the pump in the state the model asks for.
type PumpDriver struct {
	Engine *Engine
	Model  ActuatorModel
	Period time.Duration
}

// NewPumpDriver creates a PumpDriver.
func NewPumpDriver(engine *Engine, model ActuatorModel) *PumpDriver {
	return &PumpDriver{Engine: engine, Model: model, Period: DefaultPumpPeriod}
}

// Name implements Named.
func (d *PumpDriver) Name() string {
	return d.Engine.Name
}

// Update commands the pump state and verifies the acknowledged state.
func (d *PumpDriver) Update(ctx context.Context, target wire.ActuatorState) error {
	cmd := wire.Set{State: target}
	reply, err := d.Engine.Exchange(ctx, cmd)
	if err != nil {
		return err
	}
	state, err := d.stateOf(cmd, reply)
	if err != nil {
		return err
	}
	if state != target {
		return d.Engine.fail(KindNonConformance, &NonConformanceError{Command: cmd, Reply: reply})
	}
	glog.V(3).Infof("%s: state %s", d.Name(), state)
	return nil
}

// Query reads the pump state.
func (d *PumpDriver) Query(ctx context.Context) (wire.ActuatorState, error) {
	cmd := wire.Get{}
	reply, err := d.Engine.Exchange(ctx, cmd)
	if err != nil {
		return 0, err
	}
	return d.stateOf(cmd, reply)
}

// Ping sends a NoOp and expects a NoOp back.
func (d *PumpDriver) Ping(ctx context.Context) error {
	cmd := wire.NoOp{}
	reply, err := d.Engine.Exchange(ctx, cmd)
	if err != nil {
		return err
	}
	if _, ok := reply.(wire.NoOp); !ok {
		return d.Engine.fail(KindNonConformance, &NonConformanceError{Command: cmd, Reply: reply})
	}
	return nil
}

func (d *PumpDriver) stateOf(cmd, reply wire.Message) (wire.ActuatorState, error) {
	switch m := reply.(type) {
	case wire.PumpState:
		return m.State, nil
	case wire.Fault:
		return 0, d.Engine.fail(KindFault, &FaultError{Fault: m.Kind})
	}
	return 0, d.Engine.fail(KindNonConformance, &NonConformanceError{Command: cmd, Reply: reply})
}

// Run implements Runnable.
// Any failure stops the driver.
func (d *PumpDriver) Run(ctx context.Context) error {
	if err := d.Engine.Source.Start(); err != nil {
		return err
	}
	for {
		target := d.Model.Target()
		err := cycle(ctx, d.Period, func(ctx context.Context) error {
			return d.Update(ctx, target)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			glog.Errorf("%s: stopped: %v", d.Name(), err)
			return err
		}
		d.Model.PushActuatorState(target)
	}
}
