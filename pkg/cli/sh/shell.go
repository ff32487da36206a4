package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/thermo.go/pkg/config"
	"github.com/robotalks/thermo.go/pkg/driver"
	"github.com/robotalks/thermo.go/pkg/supervisor"
	"github.com/robotalks/thermo.go/pkg/wire"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell   *ishell.Shell
	Config  *config.Config
	Session *Session
}

// Session holds the links opened by connect.
type Session struct {
	Ctx    context.Context
	Cancel func()
	Sensor *driver.SensorDriver
	Pump   *driver.PumpDriver
	Links  []*supervisor.Link
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustHaveSensor wraps command func requires the sensor link.
func MustHaveSensor(fn func(c *ishell.Context, d *driver.SensorDriver)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Session == nil || s.Session.Sensor == nil {
			c.Err(fmt.Errorf("sensor not connected"))
			return
		}
		fn(c, s.Session.Sensor)
	}
}

// MustHavePump wraps command func requires the pump link.
func MustHavePump(fn func(c *ishell.Context, d *driver.PumpDriver)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Session == nil || s.Session.Pump == nil {
			c.Err(fmt.Errorf("pump not connected"))
			return
		}
		fn(c, s.Session.Pump)
	}
}

// DoExchange runs a single exchange and prints the result.
func DoExchange(c *ishell.Context, fn func(context.Context) (interface{}, error)) error {
	s := ShellFrom(c)
	result, err := fn(s.Session.Ctx)
	if err != nil {
		if s.OutputJSON {
			out, _ := json.Marshal(map[string]string{
				"error": err.Error(),
				"kind":  driver.KindOf(err).String(),
			})
			c.Println(string(out))
		}
		c.Err(err)
		return err
	}
	if s.OutputJSON {
		out, err := json.Marshal(map[string]interface{}{"result": result})
		if err != nil {
			c.Err(err)
			return err
		}
		c.Println(string(out))
		return nil
	}
	if result == nil {
		c.Println("OK")
		return nil
	}
	c.Println(fmt.Sprint(result))
	return nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens the named peripheral links; no names means both.
func (s *Shell) Connect(names ...string) error {
	if len(names) == 0 {
		names = []string{"sensor", "pump"}
	}
	session := &Session{}
	session.Ctx, session.Cancel = context.WithCancel(context.Background())
	for _, name := range names {
		var (
			l   *supervisor.Link
			err error
		)
		switch name {
		case "sensor":
			if l, err = supervisor.Dial(name, s.Config.SensorURL, wire.SensorReplies, s.Config); err == nil {
				session.Sensor = driver.NewSensorDriver(l.Engine, nil)
			}
		case "pump":
			if l, err = supervisor.Dial(name, s.Config.PumpURL, wire.PumpReplies, s.Config); err == nil {
				session.Pump = driver.NewPumpDriver(l.Engine, nil)
			}
		default:
			err = fmt.Errorf("unknown peripheral %q", name)
		}
		if err != nil {
			session.close()
			return err
		}
		session.Links = append(session.Links, l)
		go l.Run(session.Ctx)
	}
	s.Disconnect()
	s.Session = session
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", strings.Join(names, ",")))
	return nil
}

// Disconnect closes current links.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.close()
		s.Session = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

func (s *Session) close() {
	s.Cancel()
	for _, l := range s.Links {
		l.Close()
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		if err := s.Connect(); err != nil {
			log.Fatalf("connect failed: %v", err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd opens peripheral links.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[sensor] [pump]",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Connect(c.Args...); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the links.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// StatsCmd prints protocol engine counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if s.Session == nil {
				c.Err(fmt.Errorf("not connected"))
				return
			}
			stats := make(map[string]driver.Stats)
			for _, l := range s.Session.Links {
				stats[l.Engine.Name] = l.Stats()
			}
			if s.OutputJSON {
				out, _ := json.Marshal(stats)
				c.Println(string(out))
				return
			}
			for name, st := range stats {
				c.Printf("%s: %s exchanges=%d failures=%d buffered=%d\n",
					name, st.State, st.Exchanges, st.Failures, st.Buffered)
			}
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := config.Load()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).WithAutoConnect(true).Run(flag.Args()...)
}
