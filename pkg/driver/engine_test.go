package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/thermo.go/pkg/framing"
	"github.com/robotalks/thermo.go/pkg/hal"
	"github.com/robotalks/thermo.go/pkg/model"
	"github.com/robotalks/thermo.go/pkg/wire"
)

type testSink struct {
	pending []byte
	frameCh chan []byte
}

func (s *testSink) Write(p []byte) (int, error) {
	s.pending = append(s.pending, p...)
	return len(p), nil
}

func (s *testSink) Flush() error {
	s.frameCh <- s.pending
	s.pending = nil
	return nil
}

type testSource struct {
	size    int
	data    []byte
	peeked  int
	started bool
	lock    sync.Mutex
}

func (s *testSource) Start() error {
	s.lock.Lock()
	s.started = true
	s.lock.Unlock()
	return nil
}

func (s *testSource) Stop() {}

func (s *testSource) Peek(fn func([]byte, int) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.peeked = len(s.data)
	return fn(s.data, s.size-len(s.data))
}

func (s *testSource) Restart() {
	s.lock.Lock()
	s.data = append([]byte(nil), s.data[s.peeked:]...)
	s.peeked = 0
	s.lock.Unlock()
}

type engineTestEnv struct {
	t      *testing.T
	sink   *testSink
	source *testSource
	engine *Engine
}

func newEngineTestEnv(t *testing.T, replies *wire.Table) *engineTestEnv {
	env := &engineTestEnv{
		t:      t,
		sink:   &testSink{frameCh: make(chan []byte, 16)},
		source: &testSource{size: 64},
	}
	env.engine = NewEngine("test", replies, env.sink, env.source, hal.NewSignal())
	env.engine.Timeout = 200 * time.Millisecond
	return env
}

func (e *engineTestEnv) inject(chunks ...[]byte) {
	for n, chunk := range chunks {
		if n > 0 {
			time.Sleep(5 * time.Millisecond)
		}
		e.source.lock.Lock()
		e.source.data = append(e.source.data, chunk...)
		e.source.lock.Unlock()
		e.engine.Wake.Raise()
	}
}

// respond replies to every received frame using fn, until ctx is done.
func (e *engineTestEnv) respond(ctx context.Context, fn func(frame []byte) [][]byte) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-e.sink.frameCh:
				e.inject(fn(frame)...)
			}
		}
	}()
}

func (e *engineTestEnv) respondOnce(chunks ...[]byte) {
	go func() {
		<-e.sink.frameCh
		e.inject(chunks...)
	}()
}

func TestExchangeCompleteFrame(t *testing.T) {
	env := newEngineTestEnv(t, wire.SensorReplies)
	env.respondOnce([]byte{0xef, 35})
	sensor := NewSensorDriver(env.engine, nil)
	value, err := sensor.ReadTemperature(context.Background())
	require.NoError(t, err)
	require.Equal(t, wire.Celsius(35), value)
	require.True(t, env.source.started)
	require.Equal(t, Idle, env.engine.State())
	require.Zero(t, env.engine.Buffer.Len())
	require.Equal(t, Stats{State: Idle, Exchanges: 1}, env.engine.Stats())
}

func TestExchangeWritesFrame(t *testing.T) {
	env := newEngineTestEnv(t, wire.PumpReplies)
	var written []byte
	go func() {
		written = <-env.sink.frameCh
		env.inject([]byte{0xaa, 0xed})
	}()
	pump := NewPumpDriver(env.engine, nil)
	require.NoError(t, pump.Update(context.Background(), wire.StateOff))
	require.Equal(t, []byte{0xca, 0xed}, written)
}

func TestExchangePartialFrames(t *testing.T) {
	env := newEngineTestEnv(t, wire.PumpReplies)
	env.respondOnce([]byte{0xaa}, []byte{}, []byte{0x5e})
	pump := NewPumpDriver(env.engine, nil)
	require.NoError(t, pump.Update(context.Background(), wire.StateOn))
	require.Zero(t, env.engine.Buffer.Len())
}

func TestExchangeKeepsTrailingBytes(t *testing.T) {
	env := newEngineTestEnv(t, wire.PumpReplies)
	env.respondOnce([]byte{0xaa, 0x5e, 0xaa})
	pump := NewPumpDriver(env.engine, nil)
	state, err := pump.Query(context.Background())
	require.NoError(t, err)
	require.Equal(t, wire.StateOn, state)
	require.Equal(t, []byte{0xaa}, env.engine.Buffer.Bytes())
}

func TestExchangeFailures(t *testing.T) {
	testCases := []struct {
		name     string
		table    *wire.Table
		capacity int
		policy   DecodePolicy
		run      func(context.Context, *Engine) error
		reply    [][]byte
		kind     Kind
		sentinel error
		buffered int
	}{
		{
			name:     "non-conformance",
			table:    wire.PumpReplies,
			run:      setOn,
			reply:    [][]byte{{0xaa, 0xed}},
			kind:     KindNonConformance,
			sentinel: ErrNonConformance,
		},
		{
			name:  "noop reply to set",
			table: wire.PumpReplies,
			run:   setOn,
			reply: [][]byte{{0xff}},
			kind:  KindNonConformance,
		},
		{
			name:  "fault",
			table: wire.PumpReplies,
			run:   setOn,
			reply: [][]byte{{0x1f, 0xad}},
			kind:  KindFault,
		},
		{
			name:     "timeout",
			table:    wire.PumpReplies,
			run:      setOn,
			kind:     KindTimeout,
			sentinel: ErrTimeout,
		},
		{
			name:     "timeout with partial frame",
			table:    wire.SensorReplies,
			run:      readTemperature,
			reply:    [][]byte{{0xef}},
			kind:     KindTimeout,
			sentinel: ErrTimeout,
			buffered: 1,
		},
		{
			name:     "unknown opcode",
			table:    wire.SensorReplies,
			run:      readTemperature,
			reply:    [][]byte{{0x42, 0xef, 1}},
			kind:     KindDeserialize,
			sentinel: wire.ErrUnknownOpcode,
			buffered: 3,
		},
		{
			name:     "invalid payload",
			table:    wire.PumpReplies,
			run:      setOn,
			reply:    [][]byte{{0xaa, 0x01}},
			kind:     KindDeserialize,
			sentinel: wire.ErrInvalidPayload,
			buffered: 2,
		},
		{
			name:     "overflow",
			table:    wire.PumpReplies,
			capacity: 2,
			run:      setOn,
			reply:    [][]byte{{0xaa}, {0x00, 0x00}},
			kind:     KindOverflow,
			sentinel: ErrOverflow,
			buffered: 1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newEngineTestEnv(t, tc.table)
			env.engine.Timeout = 50 * time.Millisecond
			env.engine.Policy = tc.policy
			if tc.capacity > 0 {
				env.engine.Buffer = framing.New(tc.capacity)
			}
			env.respondOnce(tc.reply...)
			err := tc.run(context.Background(), env.engine)
			require.Error(t, err)
			var driverErr *Error
			require.True(t, errors.As(err, &driverErr))
			require.Equal(t, "test", driverErr.Peripheral)
			require.Equal(t, tc.kind, driverErr.Kind)
			require.Equal(t, tc.kind, KindOf(err))
			if tc.sentinel != nil {
				require.ErrorIs(t, err, tc.sentinel)
			}
			require.Equal(t, tc.buffered, env.engine.Buffer.Len())
			require.Equal(t, uint64(1), env.engine.Stats().Failures)
		})
	}
}

func TestExchangeFaultKind(t *testing.T) {
	env := newEngineTestEnv(t, wire.PumpReplies)
	env.respondOnce([]byte{0x1f, 0xde})
	_, err := NewPumpDriver(env.engine, nil).Query(context.Background())
	var faultErr *FaultError
	require.True(t, errors.As(err, &faultErr))
	require.Equal(t, wire.FaultTemperature, faultErr.Fault)
}

func TestExchangeDecodeErrorState(t *testing.T) {
	env := newEngineTestEnv(t, wire.SensorReplies)
	env.respondOnce([]byte{0x42})
	_, err := env.engine.Exchange(context.Background(), wire.Read{})
	var decodeErr *wire.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	require.Equal(t, byte(0x42), decodeErr.Opcode)
	require.Equal(t, FrameInvalid, env.engine.State())
}

func TestExchangeSkipBytePolicy(t *testing.T) {
	env := newEngineTestEnv(t, wire.SensorReplies)
	env.engine.Policy = PolicySkipByte
	env.respondOnce([]byte{0x42, 0x43}, []byte{0xef, 0xfe})
	value, err := NewSensorDriver(env.engine, nil).ReadTemperature(context.Background())
	require.NoError(t, err)
	require.Equal(t, wire.Celsius(-2), value)
	require.Zero(t, env.engine.Buffer.Len())
}

func TestExchangeCanceled(t *testing.T) {
	env := newEngineTestEnv(t, wire.SensorReplies)
	env.engine.Timeout = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-env.sink.frameCh
		cancel()
	}()
	_, err := env.engine.Exchange(ctx, wire.Read{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, env.engine.Stats().Failures)
}

func TestCycleMinimumPeriod(t *testing.T) {
	start := time.Now()
	require.NoError(t, cycle(context.Background(), 30*time.Millisecond, func(context.Context) error {
		return nil
	}))
	require.True(t, time.Since(start) >= 30*time.Millisecond)

	start = time.Now()
	require.NoError(t, cycle(context.Background(), time.Millisecond, func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	}))
	require.True(t, time.Since(start) >= 20*time.Millisecond)

	start = time.Now()
	require.Equal(t, ErrTimeout, cycle(context.Background(), time.Hour, func(context.Context) error {
		return ErrTimeout
	}))
	require.True(t, time.Since(start) < time.Second)
}

func TestDriversRun(t *testing.T) {
	m := model.New(60)
	sensorEnv := newEngineTestEnv(t, wire.SensorReplies)
	pumpEnv := newEngineTestEnv(t, wire.PumpReplies)
	sensor := NewSensorDriver(sensorEnv.engine, m)
	sensor.Period = 10 * time.Millisecond
	pump := NewPumpDriver(pumpEnv.engine, m)
	pump.Period = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	temperatures := make(chan wire.Celsius, 1)
	temperatures <- 70
	var current wire.Celsius
	sensorEnv.respond(ctx, func(frame []byte) [][]byte {
		select {
		case current = <-temperatures:
		default:
		}
		return [][]byte{wire.Encode(wire.Temperature{Value: current})}
	})
	pumpEnv.respond(ctx, func(frame []byte) [][]byte {
		msg, _ := wire.PumpCommands.Decode(newFrameReader(frame))
		set, ok := msg.(wire.Set)
		if !ok {
			return [][]byte{{0xff}}
		}
		return [][]byte{wire.Encode(wire.PumpState{State: set.State})}
	})

	errCh := make(chan error, 2)
	go func() { errCh <- sensor.Run(ctx) }()
	go func() { errCh <- pump.Run(ctx) }()

	require.Eventually(t, func() bool {
		h := m.History()
		return len(h) > 0 && h[len(h)-1].Temperature == 70 && m.Target() == wire.StateOn
	}, time.Second, 5*time.Millisecond)

	temperatures <- 50
	require.Eventually(t, func() bool {
		h := m.History()
		return h[len(h)-1].Temperature == 50 && h[len(h)-1].State == wire.StateOff
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestPumpRunStopsOnFailure(t *testing.T) {
	m := model.New(60)
	env := newEngineTestEnv(t, wire.PumpReplies)
	pump := NewPumpDriver(env.engine, m)
	pump.Period = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	replies := 0
	env.respond(ctx, func(frame []byte) [][]byte {
		if replies++; replies < 3 {
			return [][]byte{{0xaa, 0x5e}}
		}
		return [][]byte{{0xaa, 0xed}}
	})
	err := pump.Run(ctx)
	require.ErrorIs(t, err, ErrNonConformance)
	require.Equal(t, 3, replies)
	require.Equal(t, uint64(3), env.engine.Stats().Exchanges)
	p := m.Pending()
	require.Equal(t, wire.StateOn, *p.State)
}

func setOn(ctx context.Context, e *Engine) error {
	return NewPumpDriver(e, nil).Update(ctx, wire.StateOn)
}

func readTemperature(ctx context.Context, e *Engine) error {
	_, err := NewSensorDriver(e, nil).ReadTemperature(ctx)
	return err
}

type frameReader struct {
	frame []byte
}

func newFrameReader(frame []byte) *frameReader {
	return &frameReader{frame: frame}
}

func (r *frameReader) ReadByte() (byte, error) {
	if len(r.frame) == 0 {
		return 0, wire.ErrNeedMoreBytes
	}
	b := r.frame[0]
	r.frame = r.frame[1:]
	return b, nil
}
