package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	transporthttp "github.com/vovakirdan/chatpad-sync/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		log.Printf("tail_events: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://127.0.0.1:8090/api/events", "event stream address")
	group := flag.String("group", "", "group to select on connect")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if *group != "" {
		if err := wsjson.Write(ctx, conn, transporthttp.InboundCommand{Type: transporthttp.InboundSelect, GroupID: *group}); err != nil {
			return fmt.Errorf("select group: %w", err)
		}
	}

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type messages and press Enter to send. /retry <id> re-sends a failed one. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var ev transporthttp.EventResponse
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch ev.Type {
		case "group_selected":
			if ev.Group != nil {
				fmt.Printf("[%s] selected, %d members\n", ev.Group.Name, len(ev.Group.Members))
			}
		case "timeline":
			if n := len(ev.Messages); n > 0 {
				last := ev.Messages[n-1]
				fmt.Printf("[%s] %d messages, last %s: %s (%s, %s)\n", ev.GroupID, n, last.Author.Username, preview(last), last.Label, last.Status)
			} else {
				fmt.Printf("[%s] no messages yet\n", ev.GroupID)
			}
		case "fresh_message":
			if ev.Message != nil {
				fmt.Printf("\a[%s] %s: %s\n", ev.GroupID, ev.Message.Author.Username, preview(*ev.Message))
			}
		case "presence":
			if ev.Presence != nil {
				fmt.Printf("presence %s online=%t typing=%t\n", ev.Presence.UserID, ev.Presence.Online, ev.Presence.Typing)
			}
		case "notice":
			if ev.Notice != nil {
				fmt.Printf("notice [%s] %s\n", ev.Notice.Code, ev.Notice.Text)
			}
		case "sent":
			if ev.Message != nil {
				fmt.Printf("sent %s (%s)\n", ev.Message.ID, ev.Message.Status)
			}
		case "error":
			if ev.Error != nil {
				fmt.Printf("error [%s] %s\n", ev.Error.Code, ev.Error.Error)
			}
		default:
			fmt.Printf("event=%s\n", ev.Type)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			cmd := transporthttp.InboundCommand{Type: transporthttp.InboundSend, Body: text}
			if id, found := strings.CutPrefix(text, "/retry "); found {
				cmd = transporthttp.InboundCommand{Type: transporthttp.InboundRetry, MessageID: strings.TrimSpace(id)}
			}
			if err := wsjson.Write(ctx, conn, cmd); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

func preview(m transporthttp.MessageResponse) string {
	if m.Image {
		return "<image>"
	}
	return m.Body
}
