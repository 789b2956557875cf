package gateway

import (
	"context"
	"strings"
	"testing"
	"time"

	pkgLogger "github.com/fpt/signal-gateway/pkg/logger"
)

func TestHeartbeatMessage(t *testing.T) {
	hb := NewHeartbeat(HeartbeatConfig{Enabled: true, Room: "ops"}, NewMessageBus(1), pkgLogger.Nop())
	msg := hb.message()
	if msg.ChannelType != ChannelSignal || msg.ChannelID != "ops" {
		t.Errorf("message = %+v", msg)
	}
	if !strings.HasPrefix(msg.Text, "signal-gateway alive since ") {
		t.Errorf("default text = %q", msg.Text)
	}

	hb = NewHeartbeat(HeartbeatConfig{Enabled: true, Room: "ops", Text: "still here"}, NewMessageBus(1), pkgLogger.Nop())
	if got := hb.message().Text; got != "still here" {
		t.Errorf("text = %q", got)
	}
}

func TestHeartbeatDisabledReturnsImmediately(t *testing.T) {
	bus := NewMessageBus(1)
	hb := NewHeartbeat(HeartbeatConfig{Enabled: false, Room: "ops", Interval: time.Millisecond}, bus, pkgLogger.Nop())

	done := make(chan struct{})
	go func() {
		hb.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled heartbeat kept running")
	}
	if len(bus.Outbound) != 0 {
		t.Error("disabled heartbeat sent a message")
	}
}

func TestHeartbeatStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hb := NewHeartbeat(HeartbeatConfig{Enabled: true, Room: "ops", Interval: time.Hour}, NewMessageBus(1), pkgLogger.Nop())

	done := make(chan struct{})
	go func() {
		hb.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat ignored cancellation")
	}
}
