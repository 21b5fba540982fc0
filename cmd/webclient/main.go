package main

import (
	"encoding/json"
	"flag"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay-service/internal/transport"
)

// Manual test client: connects as a named participant, heartbeats,
// optionally sends one command, and prints every event for a while.
func main() {
	relayURL := flag.String("relay", "ws://localhost:3000/ws", "relay websocket endpoint")
	name := flag.String("name", "tester", "participant name")
	command := flag.String("command", "", "optional command JSON to send, e.g. '{\"type\":\"swipe\",\"direction\":\"left\"}'")
	watch := flag.Duration("watch", 30*time.Second, "how long to print incoming events")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*relayURL, nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s as %q", *relayURL, *name)

	send := func(event string, data any) {
		raw, err := json.Marshal(data)
		if err != nil {
			log.Fatalf("failed to marshal %s payload: %v", event, err)
		}
		if err := conn.WriteJSON(transport.Envelope{Event: event, Data: raw}); err != nil {
			log.Fatalf("failed to send %s: %v", event, err)
		}
	}

	send(transport.EventHeartbeat, map[string]string{"name": *name})

	if *command != "" {
		send(transport.EventCommand, json.RawMessage(*command))
		log.Printf("Sent command: %s", *command)
	}

	// Keep the roster entry alive while watching.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				send(transport.EventHeartbeat, map[string]string{"name": *name})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(*watch))
	for {
		var env transport.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			break
		}
		log.Printf("Received %s: %s", env.Event, env.Data)
	}
	close(done)

	log.Println("Done watching")
}
