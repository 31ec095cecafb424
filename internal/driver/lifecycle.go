package driver

import (
	"log"

	"github.com/looplab/fsm"
)

// Session states.
const (
	StateIdle        = "idle"
	StateConfiguring = "configuring"
	StateStreaming   = "streaming"
	StateFailed      = "failed"
	StateStopped     = "stopped"
)

const (
	eventConfigure = "configure"
	eventStream    = "stream"
	eventFail      = "fail"
	eventStop      = "stop"
)

func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventConfigure, Src: []string{StateIdle}, Dst: StateConfiguring},
			{Name: eventStream, Src: []string{StateIdle, StateConfiguring}, Dst: StateStreaming},
			{Name: eventFail, Src: []string{StateConfiguring, StateStreaming}, Dst: StateFailed},
			{Name: eventStop, Src: []string{StateIdle, StateConfiguring, StateStreaming}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				log.Printf("driver: state %s -> %s", e.Src, e.Dst)
			},
		},
	)
}
