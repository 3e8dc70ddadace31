package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tailored-agentic-units/shopassist/app"
	"github.com/tailored-agentic-units/shopassist/card"
	"github.com/tailored-agentic-units/shopassist/client"
	"github.com/tailored-agentic-units/shopassist/core/protocol"
	"github.com/tailored-agentic-units/shopassist/directory"
	"github.com/tailored-agentic-units/shopassist/identity"
	"github.com/tailored-agentic-units/shopassist/memory"
	"github.com/tailored-agentic-units/shopassist/observability"
)

const usage = `Commands:
  /new              start a new chat
  /sessions         list past sessions
  /open <n>         open session n from the last listing
  /rate <n> <1-5>   rate product n of the last reply
  /quit             exit
Anything else is sent to the assistant.`

// api is what the terminal needs from either proxy client.
type api interface {
	app.API
	SubmitFeedback(ctx context.Context, fb protocol.FeedbackRequest) error
}

func main() {
	var (
		proxyURL   = flag.String("proxy", "http://localhost:8080/api/shop", "Proxy REST base URL")
		connectURL = flag.String("connect", "", "Proxy server root for the Connect transport (replaces -proxy)")
		stateDir   = flag.String("state", defaultStateDir(), "Directory for the persisted user id; empty keeps nothing")
		session    = flag.String("session", "", "Session id to open on start")
		verbose    = flag.Bool("verbose", false, "Log client events to stderr")
	)
	flag.Parse()

	observer := setupLogging(*verbose, os.Stderr)

	var proxyClient api
	if *connectURL != "" {
		proxyClient = client.NewConnect(nil, *connectURL)
	} else {
		c, err := client.New(*proxyURL)
		if err != nil {
			log.Fatalf("Invalid proxy URL: %v", err)
		}
		proxyClient = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	id, err := identity.Load(ctx, memory.NewStore(&memory.Config{Path: *stateDir}), nil)
	if err != nil {
		log.Fatalf("Failed to load identity: %v", err)
	}

	shell := app.New(id, proxyClient, app.WithObserver(observer))
	if err := shell.Start(ctx, *session); err != nil {
		fmt.Fprintf(os.Stderr, "Could not load session: %v\n", err)
	}

	t := &terminal{
		ctx:   ctx,
		out:   os.Stdout,
		app:   shell,
		api:   proxyClient,
		users: id,
	}
	t.welcome()
	t.loop(os.Stdin)
}

// setupLogging returns the client observer. With verbose set, debug output
// from both the observer and the default slog logger goes to w; otherwise
// nothing is logged.
func setupLogging(verbose bool, w io.Writer) observability.Observer {
	if !verbose {
		return observability.NoOpObserver{}
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
	return observability.NewSlogObserver(logger)
}

type terminal struct {
	ctx     context.Context
	out     io.Writer
	app     *app.App
	api     api
	users   *identity.Identity
	listing []directory.Entry
	query   string
}

func (t *terminal) welcome() {
	msgs := t.app.Conversation().Messages()
	if len(msgs) == 0 {
		fmt.Fprintf(t.out, "%s\n%s\n\n%s\n\n", app.WelcomeTitle, app.WelcomeText, usage)
		return
	}
	for _, m := range msgs {
		t.printMessage(m)
	}
}

func (t *terminal) loop(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(t.out, "%s\n> ", app.InputPrompt)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/new":
			t.app.NewSession(t.ctx)
			fmt.Fprintln(t.out, "Started a new chat.")
		case line == "/sessions":
			t.sessions()
		case strings.HasPrefix(line, "/open "):
			t.open(strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
		case strings.HasPrefix(line, "/rate "):
			t.rate(strings.Fields(strings.TrimPrefix(line, "/rate ")))
		case strings.HasPrefix(line, "/"):
			fmt.Fprintln(t.out, usage)
		default:
			t.send(line)
		}

		if t.ctx.Err() != nil {
			return
		}
	}
}

func (t *terminal) send(text string) {
	t.query = text
	if _, err := t.app.Send(t.ctx, text); err != nil {
		slog.Debug("send failed", "error", err)
	}

	msgs := t.app.Conversation().Messages()
	if len(msgs) > 0 {
		t.printMessage(msgs[len(msgs)-1])
	}
}

func (t *terminal) sessions() {
	dir := t.app.Directory()
	if err := dir.Fetch(t.ctx); err != nil {
		slog.Debug("listing failed", "error", err)
	}

	if text := dir.Placeholder(); text != "" {
		fmt.Fprintln(t.out, text)
		t.listing = nil
		return
	}

	t.listing = dir.Entries(t.app.Conversation().SessionID())
	for i, e := range t.listing {
		marker := " "
		if e.Current {
			marker = "*"
		}
		fmt.Fprintf(t.out, "%s %2d. %-16s %s\n", marker, i+1, e.Label, e.Updated)
	}
}

func (t *terminal) open(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(t.listing) {
		fmt.Fprintln(t.out, "Run /sessions, then /open with a number from the list.")
		return
	}

	if err := t.app.Select(t.ctx, t.listing[n-1].ID); err != nil {
		fmt.Fprintf(t.out, "Could not load session: %v\n", err)
		return
	}
	for _, m := range t.app.Conversation().Messages() {
		t.printMessage(m)
	}
}

func (t *terminal) rate(args []string) {
	conv := t.app.Conversation()
	msgs := conv.Messages()
	if len(args) != 2 || len(msgs) == 0 || conv.SessionID() == "" {
		fmt.Fprintln(t.out, "Usage: /rate <product number> <rating 1-5>")
		return
	}

	last := msgs[len(msgs)-1]
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(last.Products) {
		fmt.Fprintln(t.out, "No such product in the last reply.")
		return
	}
	rating, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		fmt.Fprintln(t.out, "Rating must be a number from 1 to 5.")
		return
	}

	err = t.api.SubmitFeedback(t.ctx, protocol.FeedbackRequest{
		SessionID:    conv.SessionID(),
		MessageID:    last.ID,
		ProductID:    last.Products[n-1].ID,
		Rating:       rating,
		UserQuery:    t.query,
		FeedbackType: "rating",
	})
	if err != nil {
		fmt.Fprintf(t.out, "Feedback not recorded: %v\n", err)
		return
	}
	fmt.Fprintln(t.out, "Thanks for the feedback.")
}

func (t *terminal) printMessage(m protocol.Message) {
	who := "You"
	if m.Role == protocol.RoleAssistant {
		who = "Assistant"
	}
	fmt.Fprintf(t.out, "%s: %s\n", who, m.Content)
	if products := card.RenderAll(m.Products); products != "" {
		fmt.Fprintf(t.out, "\n%s\n", products)
	}
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "shopassist")
}
