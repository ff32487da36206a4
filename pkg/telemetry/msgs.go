package telemetry

import (
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/golang/protobuf/ptypes/timestamp"
)

// Topics relative to the queue prefix.
const (
	TopicMeta   = "meta"
	TopicStatus = "status"
	TopicFault  = "fault"
)

// StatusReport is the periodic snapshot of the supervisor.
type StatusReport struct {
	Time     *timestamp.Timestamp `protobuf:"bytes,1,opt,name=time,proto3" json:"time,omitempty"`
	Setpoint int32                `protobuf:"zigzag32,2,opt,name=setpoint,proto3" json:"setpoint,omitempty"`
	Target   string               `protobuf:"bytes,3,opt,name=target,proto3" json:"target,omitempty"`
	History  []*HistoryEntry      `protobuf:"bytes,4,rep,name=history,proto3" json:"history,omitempty"`
	// Pending holds "temperature" and "state" when not yet paired.
	Pending *structpb.Struct `protobuf:"bytes,5,opt,name=pending,proto3" json:"pending,omitempty"`
	Links   []*LinkStatus    `protobuf:"bytes,6,rep,name=links,proto3" json:"links,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *StatusReport) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatusReport) Reset() { *m = StatusReport{} }

// String implements proto.Message.
func (m *StatusReport) String() string { return proto.CompactTextString(m) }

// HistoryEntry is a committed model entry.
type HistoryEntry struct {
	Time        *timestamp.Timestamp `protobuf:"bytes,1,opt,name=time,proto3" json:"time,omitempty"`
	Temperature int32                `protobuf:"zigzag32,2,opt,name=temperature,proto3" json:"temperature,omitempty"`
	State       string               `protobuf:"bytes,3,opt,name=state,proto3" json:"state,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *HistoryEntry) ProtoMessage() {}

// Reset implements proto.Message.
func (m *HistoryEntry) Reset() { *m = HistoryEntry{} }

// String implements proto.Message.
func (m *HistoryEntry) String() string { return proto.CompactTextString(m) }

// LinkStatus reports the protocol engine of one peripheral.
type LinkStatus struct {
	Name      string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	State     string `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
	Exchanges uint64 `protobuf:"varint,3,opt,name=exchanges,proto3" json:"exchanges,omitempty"`
	Failures  uint64 `protobuf:"varint,4,opt,name=failures,proto3" json:"failures,omitempty"`
	Buffered  uint32 `protobuf:"varint,5,opt,name=buffered,proto3" json:"buffered,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *LinkStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LinkStatus) Reset() { *m = LinkStatus{} }

// String implements proto.Message.
func (m *LinkStatus) String() string { return proto.CompactTextString(m) }

// FaultReport is published once when a driver stops.
type FaultReport struct {
	Time    *timestamp.Timestamp `protobuf:"bytes,1,opt,name=time,proto3" json:"time,omitempty"`
	Driver  string               `protobuf:"bytes,2,opt,name=driver,proto3" json:"driver,omitempty"`
	Kind    string               `protobuf:"bytes,3,opt,name=kind,proto3" json:"kind,omitempty"`
	Message string               `protobuf:"bytes,4,opt,name=message,proto3" json:"message,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *FaultReport) ProtoMessage() {}

// Reset implements proto.Message.
func (m *FaultReport) Reset() { *m = FaultReport{} }

// String implements proto.Message.
func (m *FaultReport) String() string { return proto.CompactTextString(m) }

// Meta describes the supervisor, published retained as JSON.
type Meta struct {
	ID       string            `json:"id"`
	Setpoint int               `json:"setpoint"`
	Links    map[string]string `json:"links"`
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}
