package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/golang/protobuf/ptypes/timestamp"

	"github.com/robotalks/thermo.go/pkg/driver"
	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/model"
)

// DefaultInterval is the default status publishing interval.
const DefaultInterval = time.Second

const publishTimeout = time.Second

// SnapshotSource provides the model state.
type SnapshotSource interface {
	Snapshot() model.Snapshot
}

// LinkSource provides the protocol engine state of a link.
type LinkSource interface {
	fx.Named
	Stats() driver.Stats
}

// NamedEngine names an engine for reporting.
type NamedEngine struct {
	*driver.Engine
}

// Name implements Named.
func (e NamedEngine) Name() string {
	return e.Engine.Name
}

// Publisher publishes status periodically and fault reports on demand.
type Publisher struct {
	Queue    *Queue
	Model    SnapshotSource
	Links    []LinkSource
	Meta     Meta
	Interval time.Duration
	Clock    fx.TimeSource
}

// NewPublisher creates a Publisher.
func NewPublisher(q *Queue, m SnapshotSource, links ...LinkSource) *Publisher {
	return &Publisher{
		Queue:    q,
		Model:    m,
		Links:    links,
		Interval: DefaultInterval,
		Clock:    fx.SystemTime,
	}
}

// Name implements Named.
func (p *Publisher) Name() string {
	return "telemetry"
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	if token := p.Queue.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer p.Queue.Close()

	if meta, err := json.Marshal(&p.Meta); err == nil {
		p.publish(TopicMeta, meta, true)
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			data, err := p.encodeStatus()
			if err != nil {
				glog.Errorf("encode status: %v", err)
				continue
			}
			p.publish(TopicStatus, data, false)
		}
	}
}

// StatusReport builds the current status.
func (p *Publisher) StatusReport() *StatusReport {
	snapshot := p.Model.Snapshot()
	report := &StatusReport{
		Time:     p.timestamp(p.Clock.Time()),
		Setpoint: int32(snapshot.Setpoint),
		Target:   snapshot.Target.String(),
		Pending:  &structpb.Struct{Fields: make(map[string]*structpb.Value)},
	}
	for _, entry := range snapshot.History {
		report.History = append(report.History, &HistoryEntry{
			Time:        p.timestamp(entry.Timestamp),
			Temperature: int32(entry.Temperature),
			State:       entry.State.String(),
		})
	}
	if t := snapshot.Pending.Temperature; t != nil {
		report.Pending.Fields["temperature"] = numberValue(float64(*t))
	}
	if s := snapshot.Pending.State; s != nil {
		report.Pending.Fields["state"] = stringValue(s.String())
	}
	for _, l := range p.Links {
		stats := l.Stats()
		report.Links = append(report.Links, &LinkStatus{
			Name:      l.Name(),
			State:     stats.State.String(),
			Exchanges: stats.Exchanges,
			Failures:  stats.Failures,
			Buffered:  uint32(stats.Buffered),
		})
	}
	return report
}

func (p *Publisher) encodeStatus() ([]byte, error) {
	return proto.Marshal(p.StatusReport())
}

// ReportExit publishes a FaultReport for a stopped driver.
// It's an ExitHandler for the Runner.
func (p *Publisher) ReportExit(name string, err error) {
	if err == nil || ctxDone(err) {
		return
	}
	report := &FaultReport{
		Time:    p.timestamp(p.Clock.Time()),
		Driver:  name,
		Kind:    driver.KindOf(err).String(),
		Message: err.Error(),
	}
	data, e := proto.Marshal(report)
	if e != nil {
		glog.Errorf("encode fault: %v", e)
		return
	}
	p.publish(TopicFault, data, true)
}

func (p *Publisher) publish(topic string, payload []byte, retain bool) {
	token := p.Queue.PubWith(topic, payload, 1, retain)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		glog.Warningf("publish %s: %v", topic, token.Error())
	}
}

func (p *Publisher) timestamp(t time.Time) *timestamp.Timestamp {
	ts, err := ptypes.TimestampProto(t)
	if err != nil {
		return nil
	}
	return ts
}

func ctxDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// DecodeStatus decodes a status payload.
func DecodeStatus(data []byte) (*StatusReport, error) {
	var report StatusReport
	if err := proto.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// DecodeFault decodes a fault payload.
func DecodeFault(data []byte) (*FaultReport, error) {
	var report FaultReport
	if err := proto.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
