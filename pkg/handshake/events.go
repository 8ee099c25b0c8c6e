package handshake

import (
	"bytes"
	"time"

	"github.com/zkble-protocol/zkble-go/pkg/log"
	"github.com/zkble-protocol/zkble-go/pkg/packet"
	"github.com/zkble-protocol/zkble-go/pkg/schnorr"
)

// eventLog emits protocol events for one session. A nil logger disables
// it.
type eventLog struct {
	logger log.Logger
}

func newEventLog(logger log.Logger) *eventLog {
	return &eventLog{logger: logger}
}

func (e *eventLog) base(s Session, dir log.Direction, layer log.Layer, cat log.Category) log.Event {
	return log.Event{
		Timestamp:     time.Now(),
		SessionID:     s.ID,
		Direction:     dir,
		Layer:         layer,
		Category:      cat,
		DeviceAddress: s.Address,
		DeviceID:      s.DeviceIDString(),
	}
}

func (e *eventLog) command(s Session, cmd []byte) {
	if e.logger == nil || len(cmd) == 0 {
		return
	}
	ev := e.base(s, log.DirectionOut, log.LayerTransport, log.CategoryCommand)
	ev.Command = &log.CommandEvent{
		Code: string(cmd[:1]),
		Size: len(cmd),
		Data: bytes.Clone(cmd),
	}
	e.logger.Log(ev)
}

func (e *eventLog) stateChange(s Session, from, to State, reason string) {
	if e.logger == nil {
		return
	}
	ev := e.base(s, log.DirectionLocal, log.LayerHandshake, log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{
		OldState: from.String(),
		NewState: to.String(),
		Reason:   reason,
	}
	e.logger.Log(ev)
}

func (e *eventLog) verification(s Session, outcome schnorr.Outcome, pkt *packet.ProofPacket) {
	if e.logger == nil {
		return
	}
	ev := e.base(s, log.DirectionLocal, log.LayerHandshake, log.CategoryVerification)
	ev.Verification = &log.VerificationEvent{
		Outcome:          outcome.String(),
		HashHex:          s.HashHex,
		CommitmentX:      pkt.CommitmentXHex,
		PacketDeviceID:   pkt.DeviceID,
		Tag:              pkt.Tag,
		ResponseOverflow: pkt.ResponseOverflow,
	}
	e.logger.Log(ev)
}

func (e *eventLog) failure(s Session, err error, partial []byte) {
	if e.logger == nil {
		return
	}
	layer := log.LayerHandshake
	switch errorKind(err) {
	case "channel", "timeout":
		layer = log.LayerTransport
	case "malformed":
		layer = log.LayerCodec
	}

	ev := e.base(s, log.DirectionLocal, layer, log.CategoryError)
	ev.Error = &log.ErrorEventData{
		Layer:   layer,
		Kind:    errorKind(err),
		Message: err.Error(),
		Context: s.State.String(),
		Partial: bytes.Clone(partial),
	}
	e.logger.Log(ev)
}
