package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/voicepages/voicepages/log"
)

// EventCallback receives mpv property changes and events.
// For property changes name is the property; for other events it is the event name.
type EventCallback func(name string, msg ipcMessage)

// EventListener keeps one persistent connection to mpv.
// mpv scopes observe_property to the connection that issued it, so observation and
// the read loop share the same connection.
type EventListener struct {
	socketPath string
	properties []string
	callback   EventCallback
	conn       net.Conn
	done       chan struct{}
	mu         sync.Mutex
	listening  bool
}

// NewEventListener creates a listener observing the given properties.
func NewEventListener(socketPath string, properties []string, callback EventCallback) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		properties: properties,
		callback:   callback,
		done:       make(chan struct{}),
	}
}

// Start connects, registers property observers and starts the read loop.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	for i, name := range el.properties {
		payload, err := json.Marshal(ipcCommand{Command: []any{"observe_property", i + 1, name}})
		if err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.listening = true
	go el.readLoop()

	log.Debugf("mpv event listener started on %s (observing: %v)", el.socketPath, el.properties)
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (el *EventListener) Stop() {
	el.mu.Lock()
	if !el.listening {
		el.mu.Unlock()
		return
	}
	el.listening = false
	_ = el.conn.Close()
	el.mu.Unlock()

	<-el.done
}

func (el *EventListener) readLoop() {
	defer close(el.done)

	reader := bufio.NewReader(el.conn)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			el.processEvent(line)
		}
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Debugf("event listener read: %v", err)
			}
			return
		}
	}
}

func (el *EventListener) processEvent(line []byte) {
	var msg ipcMessage
	if err := json.Unmarshal(line, &msg); err != nil || msg.Event == "" {
		return
	}

	if msg.Event == "property-change" {
		if msg.Name != "" {
			el.callback(msg.Name, msg)
		}
		return
	}

	el.callback(msg.Event, msg)
}
