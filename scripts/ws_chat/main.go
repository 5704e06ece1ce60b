// Command ws_chat is an interactive smoke-test client: it logs in (or
// registers) through the REST API, attaches over WebSocket and exchanges
// direct messages from the terminal.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pulsechat/pulsechat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	user := flag.String("user", "cli-user", "username")
	password := flag.String("password", "password123", "password")
	peer := flag.Int64("peer", 0, "user id to chat with")
	flag.Parse()

	if *peer == 0 {
		return errors.New("-peer is required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	userID, token, err := login(ctx, *server, *user, *password)
	if err != nil {
		return err
	}
	log.Printf("logged in as %s (id %d)", *user, userID)

	wsURL := strings.Replace(*server, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, data any) {
		payload, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			log.Printf("marshal %s: %v", msgType, marshalErr)
			return
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	send(proto.InboundTypeAuth, proto.AuthData{UserID: userID, Token: token})

	go func() {
		for {
			var outbound struct {
				Type string          `json:"type"`
				Data json.RawMessage `json:"data"`
			}
			if readErr := wsjson.Read(ctx, conn, &outbound); readErr != nil {
				if ctx.Err() == nil {
					log.Printf("read: %v", readErr)
				}
				cancel()
				return
			}
			printOutbound(outbound.Type, outbound.Data)
		}
	}()

	fmt.Printf("chatting with user %d; type a message, or /quit\n", *peer)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		send(proto.InboundTypeChat, proto.ChatData{ReceiverID: *peer, Content: line})
	}

	return scanner.Err()
}

// login authenticates against the REST API, registering the account when it
// does not exist yet.
func login(ctx context.Context, server, username, password string) (int64, string, error) {
	userID, token, err := postAuth(ctx, server+"/api/login", username, password)
	if err == nil {
		return userID, token, nil
	}

	userID, token, regErr := postAuth(ctx, server+"/api/register", username, password)
	if regErr != nil {
		return 0, "", fmt.Errorf("login failed (%v) and register failed: %w", err, regErr)
	}
	return userID, token, nil
}

func postAuth(ctx context.Context, url, username, password string) (int64, string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, "", fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}

	var auth struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return 0, "", err
	}
	return auth.User.ID, auth.Token, nil
}

func printOutbound(msgType string, data json.RawMessage) {
	switch msgType {
	case proto.OutboundTypeMessage, proto.OutboundTypeMessageEdit:
		var msg proto.MessagePayload
		if json.Unmarshal(data, &msg) == nil {
			fmt.Printf("[%d -> %d] %s\n", msg.SenderID, msg.ReceiverID, msg.Content)
		}
	case proto.OutboundTypeTyping:
		var typing proto.TypingPayload
		if json.Unmarshal(data, &typing) == nil && typing.IsTyping {
			fmt.Printf("user %d is typing...\n", typing.UserID)
		}
	case proto.OutboundTypeError:
		var errPayload proto.ErrorPayload
		if json.Unmarshal(data, &errPayload) == nil {
			fmt.Printf("error: %s (%s)\n", errPayload.Message, errPayload.Code)
		}
	default:
		fmt.Printf("%s: %s\n", msgType, data)
	}
}
