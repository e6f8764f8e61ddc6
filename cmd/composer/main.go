package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prasanthmj/composer/pkg/composer"
	"github.com/prasanthmj/composer/pkg/config"
	"github.com/prasanthmj/composer/pkg/editor"
	"github.com/prasanthmj/composer/pkg/email"
	"github.com/prasanthmj/composer/pkg/handler"
	"github.com/prasanthmj/composer/pkg/logger"
	"github.com/prasanthmj/composer/pkg/recipients"
	"github.com/prasanthmj/composer/pkg/sentlog"
	"github.com/prasanthmj/composer/pkg/shortcuts"
	"github.com/prasanthmj/composer/pkg/storage"
	"github.com/prasanthmj/composer/pkg/templates"
)

func main() {
	// Parse command line flags
	var (
		envFile       = flag.String("env", "", "Load variables from this file instead of .env")
		toolName      = flag.String("tool", "", "Call a specific tool")
		toolArgs      = flag.String("args", "{}", "Tool arguments as JSON")
		scriptFile    = flag.String("script", "", "Run a JSON array of tool calls in one session")
		listTemplates = flag.Bool("templates", false, "List email templates")
		listShortcuts = flag.Bool("shortcuts", false, "List keyboard shortcuts")
		sendTest      = flag.Bool("send-test", false, "Send a test email")
		plainEditor   = flag.Bool("plain", false, "Edit canonical text directly instead of the rich editor")
		debugMode     = flag.Bool("debug", false, "Enable debug mode")
	)
	flag.Parse()

	// Load configuration
	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.LoadConfig(envFiles...)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, *debugMode, !*plainEditor)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	// Terminal mode operations
	if *toolName != "" || *scriptFile != "" || *listTemplates || *listShortcuts || *sendTest {
		err := runTerminalMode(ctx, app, cfg, *toolName, *toolArgs, *scriptFile,
			*listTemplates, *listShortcuts, *sendTest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Session mode (default): one tool call per line on stdin
	if err := runSession(ctx, app.handler, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type app struct {
	handler *handler.Handler
	log     *slog.Logger
	closers []func() error
}

func (a *app) Close() {
	a.handler.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("shutdown failed", logger.Error(err))
		}
	}
}

// newApp wires storage, transport and the composer session from cfg
func newApp(ctx context.Context, cfg *config.Config, debug, rich bool) (*app, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	lg := logger.New(
		logger.WithLevel(level),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithAttr(slog.String("service", "email-composer")),
	)
	a := &app{log: lg}

	store, err := newStore(ctx, cfg, a)
	if err != nil {
		return nil, err
	}

	sentLog, err := newSentLog(ctx, cfg, a)
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateForOperation(); err != nil {
		return nil, err
	}
	sender, err := newSender(cfg)
	if err != nil {
		return nil, err
	}

	svc := templates.NewService(store, templates.WithLogger(lg))
	opts := []composer.Option{
		composer.WithLogger(lg),
		composer.WithTemplates(svc),
		composer.WithRecents(recipients.NewRecentList(store, lg)),
		composer.WithSentLog(sentLog),
		composer.WithResetDelay(cfg.ResetDelay),
		composer.WithSendTimeout(cfg.SendTimeout),
	}
	if cfg.IsArchiveConfigured() {
		opts = append(opts, composer.WithArchiver(email.NewSentArchiver(cfg.IMAP(), cfg.SenderEmail, lg)))
	}
	c := composer.New(sender, opts...)
	if rich {
		c.AttachEditor(editor.NewSurface(editor.WithLogger(lg)))
	}

	platform := cfg.ShortcutPlatform
	if platform == "" {
		platform = runtime.GOOS
	}
	d := shortcuts.NewDispatcher(shortcuts.WithPlatform(platform), shortcuts.WithLogger(lg))

	a.handler = handler.NewHandler(c, svc, d, lg)
	lg.Debug("composer ready",
		slog.String("transport", cfg.Transport),
		slog.String("store", cfg.StoreBackend),
		slog.Bool("rich_editor", rich))
	return a, nil
}

func newStore(ctx context.Context, cfg *config.Config, a *app) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := storage.ConnectRedis(ctx, cfg.RedisURL, 3, time.Second)
		if err != nil {
			return nil, err
		}
		rs := storage.NewRedisStore(client, "composer:")
		a.closers = append(a.closers, rs.Close)
		return rs, nil
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewFileStore(cfg.StoreDir)
	}
}

func newSentLog(ctx context.Context, cfg *config.Config, a *app) (sentlog.Store, error) {
	if cfg.MongoURL == "" {
		return sentlog.NewMemoryStore(), nil
	}
	client, err := sentlog.Connect(ctx, cfg.MongoURL, cfg.SendTimeout)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		return client.Disconnect(context.Background())
	})
	return sentlog.NewMongoStore(client.Database(cfg.MongoDatabase)), nil
}

func newSender(cfg *config.Config) (email.Sender, error) {
	switch cfg.Transport {
	case config.TransportSMTP:
		return email.NewSMTPSender(cfg.SMTP())
	case config.TransportPostmark:
		return email.NewPostmarkSender(cfg.Postmark())
	default:
		from := cfg.SenderEmail
		if from == "" {
			from = "composer@localhost"
		}
		return email.NewDevSender(cfg.OutboxDir, from), nil
	}
}

// runTerminalMode executes terminal mode for CLI testing
func runTerminalMode(ctx context.Context, a *app, cfg *config.Config, toolName, toolArgs, scriptFile string,
	listTemplates, listShortcuts, sendTest bool) error {

	h := a.handler

	// List templates
	if listTemplates {
		return printTool(ctx, h, &handler.ToolRequest{Name: "list_templates"})
	}

	// List shortcuts
	if listShortcuts {
		return printTool(ctx, h, &handler.ToolRequest{Name: "shortcuts_help"})
	}

	// Send test email
	if sendTest {
		testAddr := os.Getenv("TEST_EMAIL_ADDRESS")
		if testAddr == "" {
			testAddr = cfg.SenderEmail // Send to self
		}
		if testAddr == "" {
			testAddr = "delivered@resend.dev"
		}

		calls := []handler.ToolRequest{
			{Name: "add_recipient", Arguments: map[string]interface{}{"address": testAddr}},
			{Name: "set_subject", Arguments: map[string]interface{}{
				"subject": fmt.Sprintf("Test Email - %s", time.Now().Format("2006-01-02 15:04:05")),
			}},
			{Name: "set_message", Arguments: map[string]interface{}{
				"message": "This is a **test email** sent from the composer terminal mode.\n• formatting\n• lists",
			}},
		}
		for _, req := range calls {
			if _, err := h.CallTool(ctx, &req); err != nil {
				return err
			}
		}
		return printTool(ctx, h, &handler.ToolRequest{Name: "send_email"})
	}

	// Script of calls in one session
	if scriptFile != "" {
		data, err := os.ReadFile(scriptFile)
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		var calls []handler.ToolRequest
		if err := json.Unmarshal(data, &calls); err != nil {
			return fmt.Errorf("failed to parse script: %w", err)
		}
		for i := range calls {
			fmt.Printf("> %s\n", calls[i].Name)
			if err := printTool(ctx, h, &calls[i]); err != nil {
				return fmt.Errorf("call %d (%s): %w", i+1, calls[i].Name, err)
			}
		}
		return nil
	}

	// Generic tool invocation
	if toolName != "" {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(toolArgs), &args); err != nil {
			return fmt.Errorf("failed to parse tool arguments: %w", err)
		}
		return printTool(ctx, h, &handler.ToolRequest{Name: toolName, Arguments: args})
	}

	return nil
}

func printTool(ctx context.Context, h *handler.Handler, req *handler.ToolRequest) error {
	resp, err := h.CallTool(ctx, req)
	if err != nil {
		return err
	}
	if len(resp.Content) > 0 {
		fmt.Println(resp.Content[0].Text)
	}
	return nil
}

// runSession reads one JSON tool call per line and writes one JSON response
// per line. Tool errors are reported in the response and do not end the
// session.
func runSession(ctx context.Context, h *handler.Handler, in io.Reader, out io.Writer) error {
	type reply struct {
		*handler.ToolResponse
		Error string `json:"error,omitempty"`
	}

	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req handler.ToolRequest
		var r reply
		if err := json.Unmarshal(line, &req); err != nil {
			r.Error = fmt.Sprintf("invalid request: %v", err)
		} else if resp, err := h.CallTool(ctx, &req); err != nil {
			r.Error = err.Error()
		} else {
			r.ToolResponse = resp
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return scanner.Err()
}
