package peripheral

import (
	"context"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/thermo.go/pkg/cli/sh"
	"github.com/robotalks/thermo.go/pkg/driver"
	"github.com/robotalks/thermo.go/pkg/wire"
)

var (
	// SensorReadCmd exposes the sensor Read command.
	SensorReadCmd = ishell.Cmd{
		Name:    "sensor.read",
		Aliases: []string{"sr"},
		Help:    "",
		Func: sh.MustHaveSensor(func(c *ishell.Context, d *driver.SensorDriver) {
			sh.DoExchange(c, func(ctx context.Context) (interface{}, error) {
				value, err := d.ReadTemperature(ctx)
				if err != nil {
					return nil, err
				}
				return value, nil
			})
		}),
	}

	// PumpSetCmd exposes the pump Set command.
	PumpSetCmd = ishell.Cmd{
		Name:    "pump.set",
		Aliases: []string{"ps"},
		Help:    "on|off",
		Func: sh.MustHavePump(func(c *ishell.Context, d *driver.PumpDriver) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("STATE required"))
				return
			}
			state, err := wire.ParseActuatorState(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoExchange(c, func(ctx context.Context) (interface{}, error) {
				return nil, d.Update(ctx, state)
			})
		}),
	}

	// PumpGetCmd exposes the pump Get command.
	PumpGetCmd = ishell.Cmd{
		Name:    "pump.get",
		Aliases: []string{"pg"},
		Help:    "",
		Func: sh.MustHavePump(func(c *ishell.Context, d *driver.PumpDriver) {
			sh.DoExchange(c, func(ctx context.Context) (interface{}, error) {
				state, err := d.Query(ctx)
				if err != nil {
					return nil, err
				}
				return state.String(), nil
			})
		}),
	}

	// PumpNoOpCmd exposes the pump NoOp command.
	PumpNoOpCmd = ishell.Cmd{
		Name:    "pump.noop",
		Aliases: []string{"ping"},
		Help:    "",
		Func: sh.MustHavePump(func(c *ishell.Context, d *driver.PumpDriver) {
			sh.DoExchange(c, func(ctx context.Context) (interface{}, error) {
				return nil, d.Ping(ctx)
			})
		}),
	}
)

func init() {
	sh.AddCmds(
		&SensorReadCmd,
		&PumpSetCmd,
		&PumpGetCmd,
		&PumpNoOpCmd,
	)
}
