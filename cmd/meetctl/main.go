// meetctl консольный клиент комнаты голосования.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/pkg/client"

	"github.com/spf13/pflag"
)

const usage = `usage: meetctl [flags] <command> [args]

commands:
  create <name>     создать комнату (или получить id существующей)
  rooms             список комнат
  join              войти в комнату --room
  vote yes|no       проголосовать
  init              сбросить голоса комнаты
  say <text>        написать в чат
  history           последние сообщения чата
  follow            войти и печатать ростер при каждом изменении

flags:
`

func main() {
	fs := pflag.NewFlagSet("meetctl", pflag.ContinueOnError)
	baseURL := fs.String("url", envOr("MEET_URL", "http://localhost:8080"), "адрес сервиса")
	token := fs.String("token", os.Getenv("MEET_TOKEN"), "токен сессии")
	cookie := fs.String("cookie", client.DefaultCookie, "имя cookie сессии")
	room := fs.Int64("room", 0, "id комнаты")
	useWS := fs.Bool("ws", false, "follow через WebSocket вместо SSE")
	limit := fs.Int("limit", 20, "сколько сообщений показать в history")
	timeout := fs.Duration("timeout", 10*time.Second, "таймаут одиночных команд")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	c, err := client.New(*baseURL, *token, client.WithCookieName(*cookie))
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := fs.Arg(0), fs.Args()[1:]
	if cmd == "follow" {
		if err := follow(ctx, c, requireRoom(*room), *useWS, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			fail(err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := run(ctx, c, cmd, args, *room, *limit, os.Stdout); err != nil {
		fail(err)
	}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string, room int64, limit int, out io.Writer) error {
	switch cmd {
	case "create":
		if len(args) == 0 {
			return errors.New("create: room name required")
		}
		id, err := c.CreateRoom(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, id)
	case "rooms":
		list, err := c.Rooms(ctx)
		if err != nil {
			return err
		}
		for _, r := range list {
			fmt.Fprintf(out, "%d\t%s\towner=%s\tparticipants=%d\n", r.ID, r.Name, r.OwnerName, r.Participants)
		}
	case "join":
		view, err := c.JoinRoom(ctx, requireRoom(room))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (#%d) owner=%t\n", view.RoomName, view.RoomID, view.IsOwner)
		for _, p := range view.Participants {
			fmt.Fprintf(out, "  %s\n", p.Name)
		}
	case "vote":
		if len(args) != 1 {
			return errors.New("vote: expected yes|no")
		}
		result, err := parseVote(args[0])
		if err != nil {
			return err
		}
		return c.SendVote(ctx, requireRoom(room), result)
	case "init":
		return c.SendInitialize(ctx, requireRoom(room))
	case "say":
		if len(args) == 0 {
			return errors.New("say: text required")
		}
		return c.SendText(ctx, requireRoom(room), strings.Join(args, " "))
	case "history":
		msgs, err := c.Messages(ctx, requireRoom(room), limit)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			fmt.Fprintf(out, "%s %s: %s\n", m.CreatedAt.Local().Format(time.TimeOnly), m.Username, m.Text)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	return nil
}

// follow входит в комнату, подписывается и печатает ростер после каждого изменения.
func follow(ctx context.Context, c *client.Client, room int64, useWS bool, out io.Writer) error {
	view, err := c.JoinRoom(ctx, room)
	if err != nil {
		return err
	}

	var stream client.Stream
	if useWS {
		stream, err = c.SubscribeWS(ctx, room)
	} else {
		stream, err = c.Subscribe(ctx, room)
	}
	if err != nil {
		return err
	}

	rc := client.NewReconciler(room, view.Participants, client.WithSender(c))
	rc.OnChange(func(votes []client.Vote) { printRoster(out, votes) })
	rc.OnEvent(func(ev protocol.Event) {
		if t, ok := ev.(protocol.TextEvent); ok {
			fmt.Fprintf(out, "%s: %s\n", t.From.Name, t.Message)
		}
	})

	fmt.Fprintf(out, "following %s (#%d), ctrl+c to stop\n", view.RoomName, view.RoomID)
	printRoster(out, rc.Snapshot())

	return rc.Run(ctx, stream)
}

func printRoster(out io.Writer, votes []client.Vote) {
	var b strings.Builder
	for _, v := range votes {
		mark := "…"
		if v.Result != nil {
			mark = "no"
			if *v.Result {
				mark = "yes"
			}
		}
		fmt.Fprintf(&b, "  %-20s %s\n", v.Name, mark)
	}
	fmt.Fprint(out, b.String())
}

func parseVote(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "1", "true":
		return true, nil
	case "no", "n", "0", "false":
		return false, nil
	}

	return false, fmt.Errorf("vote: %q is not yes|no", s)
}

func requireRoom(id int64) int64 {
	if id <= 0 {
		fail(errors.New("--room is required"))
	}

	return id
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return def
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "meetctl:", err)
	os.Exit(1)
}
