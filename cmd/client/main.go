package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	logger_lib "github.com/s21platform/logger-lib"
	"github.com/s21platform/metrics-lib/pkg"

	"github.com/s21platform/chat-client/internal/archive"
	"github.com/s21platform/chat-client/internal/client/chatapi"
	"github.com/s21platform/chat-client/internal/config"
	"github.com/s21platform/chat-client/internal/creds"
	"github.com/s21platform/chat-client/internal/dispatch"
	"github.com/s21platform/chat-client/internal/model"
	"github.com/s21platform/chat-client/internal/session"
	"github.com/s21platform/chat-client/internal/transport"
)

func main() {
	cfg := config.MustLoad()
	logger := logger_lib.New(cfg.Logger.Host, cfg.Logger.Port, cfg.Service.Name, cfg.Platform.Env)

	metrics, err := pkg.NewMetrics(cfg.Metrics.Host, cfg.Metrics.Port, cfg.Service.Name, cfg.Platform.Env)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to connect graphite: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, config.KeyLogger, logger)
	ctx = context.WithValue(ctx, config.KeyMetrics, metrics)

	provider := creds.NewStatic(cfg.Chat.Token)
	apiClient := chatapi.New(cfg.Chat.BaseURL, provider)
	defer apiClient.Close()

	dialer := transport.NewDialer(cfg.Chat.SocketURL, provider)

	var archiveRepo session.ArchiveRepo
	if cfg.Archive.Path != "" {
		arch, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			logger.Error(fmt.Sprintf("failed to open archive at %s: %v", cfg.Archive.Path, err))
		} else {
			defer arch.Close()
			archiveRepo = arch
		}
	}

	controller := session.New(cfg.Chat.DefaultRoom, apiClient, session.WrapDialer(dialer), archiveRepo)
	controller.OnUpdate = printMessage
	defer controller.Close()

	if err := controller.Start(ctx); err != nil {
		logger.Error(fmt.Sprintf("failed to start room session: %v", err))
	}
	if controller.State() == session.StateDegraded {
		fmt.Println("! no live connection, edits and deletes fall back to REST")
	}
	for _, msg := range controller.Snapshot() {
		printMessage(msg)
	}

	dispatcher := dispatch.New(cfg.Chat.DefaultRoom, cfg.Chat.UserUID, controller, apiClient)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gCtx.Done()
		apiClient.Logout(context.Background())
		return nil
	})

	g.Go(func() error {
		defer stop()
		return inputLoop(gCtx, dispatcher, apiClient)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(fmt.Sprintf("client error: %v", err))
	}
}

func inputLoop(ctx context.Context, dispatcher *dispatch.Dispatcher, apiClient *chatapi.Client) error {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())

		var err error
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/rooms":
			rooms, roomsErr := apiClient.Rooms(ctx)
			if roomsErr != nil {
				err = roomsErr
				break
			}
			for _, room := range rooms {
				fmt.Printf("%s\t%s\t%s\n", room.ID, room.Name, room.LastMessagePreview)
			}
		case strings.HasPrefix(line, "/edit "):
			parts := strings.SplitN(strings.TrimPrefix(line, "/edit "), " ", 2)
			if len(parts) != 2 {
				fmt.Println("usage: /edit <id> <text>")
				continue
			}
			err = dispatcher.Edit(ctx, parts[0], parts[1])
		case strings.HasPrefix(line, "/delete "):
			err = dispatcher.Delete(ctx, strings.TrimPrefix(line, "/delete "))
		default:
			err = dispatcher.Send(ctx, line, nil)
		}

		if err != nil {
			fmt.Printf("! %v\n", err)
		}
	}

	return scanner.Err()
}

func printMessage(msg model.Message) {
	name := msg.SenderName
	if name == "" {
		name = msg.SenderUID
	}

	if msg.IsDeleted {
		fmt.Printf("%s [%s] %s: <deleted>\n", msg.CreatedAt.Format("15:04:05"), msg.ID, name)
		return
	}

	body := msg.Text
	if msg.Image != "" {
		body = strings.TrimSpace(body + fmt.Sprintf(" [image %s, %d bytes]", msg.ImageFileName, msg.ImageSize))
	}
	if msg.IsEdited {
		body += " (edited)"
	}
	fmt.Printf("%s [%s] %s: %s\n", msg.CreatedAt.Format("15:04:05"), msg.ID, name, body)
}
