package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mtzanidakis/securevault/internal/natsbus"
	"github.com/nats-io/nats.go"
)

const defaultAuditURL = "nats://127.0.0.1:4222"

// runAudit tails audit events from a running server's embedded NATS bus.
func runAudit(args []string) error {
	url := defaultAuditURL
	if v := os.Getenv("VAULT_NATS_URL"); v != "" {
		url = v
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-url":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -url")
			}
			i++
			url = args[i]
		default:
			return fmt.Errorf("usage: securevault audit [-url nats://host:port]")
		}
	}

	client, err := natsbus.NewClientFromURL(url)
	if err != nil {
		return err
	}
	defer client.Close()

	_, err = client.Subscribe(natsbus.TopicEventsAll, func(msg *nats.Msg) {
		printEvent(os.Stdout, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Listening for audit events on %s\n", url)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}

func printEvent(w io.Writer, data []byte) {
	var event natsbus.Event
	if err := json.Unmarshal(data, &event); err != nil {
		fmt.Fprintf(w, "invalid event: %s\n", data)
		return
	}

	var attrs []string
	for _, k := range []string{"id", "name", "username", "success"} {
		if v, ok := event.Data[k]; ok {
			attrs = append(attrs, fmt.Sprintf("%s=%v", k, v))
		}
	}
	fmt.Fprintf(w, "%s %s %s\n", event.Timestamp, event.Type, strings.Join(attrs, " "))
}
