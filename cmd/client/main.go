package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pushp314/devconnect-sync/internal/config"
	"github.com/pushp314/devconnect-sync/internal/feed"
	"github.com/pushp314/devconnect-sync/internal/gateway"
	"github.com/pushp314/devconnect-sync/internal/identity"
	"github.com/pushp314/devconnect-sync/internal/models"
	"github.com/pushp314/devconnect-sync/internal/session"
	"github.com/pushp314/devconnect-sync/pkg/logger"
)

func main() {
	// 0. Load Config & Initialize Logger
	config.LoadConfig()
	cfg := config.AppConfig

	env := cfg.Env
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	logger.Info().Str("environment", env).Msg("Starting DevConnect sync client...")

	if cfg.AuthToken == "" {
		logger.Fatal().Msg("AUTH_TOKEN is required")
	}

	// 1. Identity from the session token
	ident := identity.NewTokenProvider()
	if err := ident.SetToken(cfg.AuthToken); err != nil {
		logger.Fatal().Err(err).Msg("Could not resolve viewer from token")
	}
	viewerID, _ := ident.Viewer()
	logger.Info().Str("viewer", viewerID).Msg("Identity resolved")

	// 2. Gateway + Feed
	gw := gateway.NewClient(cfg.GatewayURL, cfg.AuthToken)
	fd := feed.NewSocket(cfg.FeedURL, cfg.AuthToken)
	defer fd.Close()

	// 3. Session
	sess := session.New(ident, gw, fd, session.Options{
		LoadTimeout:        cfg.LoadTimeout(),
		UnreadPollInterval: cfg.UnreadPollInterval(),
	})
	defer sess.Close()

	// 4. Interactive loop with graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println("Commands: friends | requests | convs | unread | status <id> | add <id> | accept <id> | decline <id> | cancel <id> | remove <id> | block <id> | unblock <id> | open <convId> | msg <convId> <text> | read <convId> | host <eventId> | quit")

	for {
		select {
		case <-quit:
			logger.Info().Msg("Shutting down")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "quit" {
				return
			}
			runCommand(sess, line)
		}
	}
}

func runCommand(sess *session.Session, line string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}
	rel := sess.Relationships()
	conv := sess.Conversations()
	if rel == nil || conv == nil {
		fmt.Println("session not ready")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	switch parts[0] {
	case "friends":
		for _, p := range rel.Friends() {
			fmt.Printf("  %s  %s\n", p.ID, p.Username)
		}
	case "requests":
		for _, e := range rel.Incoming() {
			fmt.Printf("  in   %s\n", e.CounterpartID)
		}
		for _, e := range rel.Outgoing() {
			fmt.Printf("  out  %s\n", e.CounterpartID)
		}
	case "convs":
		for _, cv := range conv.Conversations() {
			fmt.Printf("  %s  %s/%s\n", cv.ID, cv.User1ID, cv.User2ID)
		}
	case "unread":
		fmt.Printf("  unread: %d\n", conv.Unread())
	case "status":
		if len(parts) < 2 {
			fmt.Println("usage: status <id>")
			return
		}
		var s models.Status
		if s, err = rel.Status(ctx, parts[1]); err == nil {
			fmt.Printf("  %s: %s\n", parts[1], s)
		}
	case "add":
		err = withArg(parts, func(id string) error { return rel.SendRequest(ctx, id) })
	case "accept":
		err = withArg(parts, func(id string) error { return rel.AcceptRequest(ctx, id) })
	case "decline":
		err = withArg(parts, func(id string) error { return rel.DeclineRequest(ctx, id) })
	case "cancel":
		err = withArg(parts, func(id string) error { return rel.CancelRequest(ctx, id) })
	case "remove":
		err = withArg(parts, func(id string) error { return rel.RemoveFriend(ctx, id) })
	case "block":
		err = withArg(parts, func(id string) error { return rel.BlockUser(ctx, id) })
	case "unblock":
		err = withArg(parts, func(id string) error { return rel.UnblockUser(ctx, id) })
	case "open":
		err = withArg(parts, func(id string) error {
			conv.SetActive(id)
			if fetchErr := conv.FetchMessages(ctx, id, 50, 0); fetchErr != nil {
				return fetchErr
			}
			for _, m := range conv.Messages(id) {
				fmt.Printf("  [%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.SenderID, m.Content)
			}
			return nil
		})
	case "msg":
		if len(parts) < 3 {
			fmt.Println("usage: msg <convId> <text>")
			return
		}
		err = conv.SendMessage(ctx, parts[1], strings.Join(parts[2:], " "), models.MessageText, models.ReactionNone)
	case "read":
		err = withArg(parts, func(id string) error { return conv.MarkAsRead(ctx, id) })
	case "host":
		err = withArg(parts, func(id string) error {
			cv, req, hostErr := conv.CreateConversationWithHost(ctx, id)
			if hostErr != nil {
				return hostErr
			}
			fmt.Printf("  conversation %s, request %s (%s)\n", cv.ID, req.ID, req.Status)
			sess.SyncSubscriptions()
			return nil
		})
	default:
		fmt.Println("unknown command:", parts[0])
	}

	if err != nil {
		fmt.Println("error:", err)
	}
}

func withArg(parts []string, fn func(string) error) error {
	if len(parts) < 2 {
		fmt.Println("usage:", parts[0], "<id>")
		return nil
	}
	return fn(parts[1])
}
