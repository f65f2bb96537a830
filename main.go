package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

type runCmd struct{}

type versionCmd struct{}

type sessionsCmd struct{}

type transcriptsCmd struct {
	ID string `arg:"" optional:"" help:"Show one saved conversation"`
}

var program *tea.Program

var cli struct {
	Version     versionCmd     `cmd:"version" help:"Print version information"`
	Sessions    sessionsCmd    `cmd:"sessions" help:"List conversation sessions on the backend"`
	Transcripts transcriptsCmd `cmd:"transcripts" help:"List or show locally saved conversations"`
	Prompt      string         `short:"p" help:"Ask one question, stream the answer to stdout and exit"`
	DeepSearch  bool           `help:"Enable deep search for the question"`
	Run         runCmd         `cmd:"" default:"1" help:"Run the interactive application"`
}

func initLogger(cfg LoggingConfig) {
	logPath := cfg.File
	if logPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Errorf("failed to get user home directory: %w", err))
		}
		logDir := filepath.Join(homeDir, ".local", "share", "artha")
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			panic(fmt.Errorf("failed to create log directory %s: %w", logDir, err))
		}
		logPath = filepath.Join(logDir, "artha.log")
	}

	// Set up lumberjack for log rotation
	logFile := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, opts)))
}

func (v versionCmd) Run() error {
	fmt.Println("Artha CLI v0.1.0")
	return nil
}

func (s sessionsCmd) Run() error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}
	api := NewAPIClient(config.Backend.BaseURL, keyringCredential())
	sessions, err := api.ListSessions(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(FormatSessionList(sessions))
	return nil
}

func (c transcriptsCmd) Run() error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}
	store, err := NewTranscriptStore(config.Transcript.MaxTranscripts, config.Transcript.MaxAgeDays)
	if err != nil {
		return err
	}
	defer store.Close()

	if c.ID != "" {
		transcript, err := store.Load(c.ID)
		if err != nil {
			return err
		}
		fmt.Print(generateExportContent(transcript.Messages, transcript.Metadata.SessionID,
			transcript.Metadata.DeepSearch, transcript.Metadata.LastUpdated))
		return nil
	}

	list, err := store.List(config.Transcript.ListLimit)
	if err != nil {
		return err
	}
	fmt.Println(FormatTranscriptList(list))
	return nil
}

func (r *runCmd) Run() error {
	// Check if we are running in a terminal
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Println("This program requires a terminal to run.")
		fmt.Println("Please run it in a terminal emulator.")
		return nil
	}

	config, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Using defaults due to config load failure: %v\n", err)
		cfg := defaultConfig()
		config = &cfg
	}

	tuiModel := NewTUIModel(config)
	program = tea.NewProgram(tuiModel, tea.WithAltScreen(), tea.WithMouseCellMotion())

	api := NewAPIClient(config.Backend.BaseURL, keyringCredential())
	chat := NewChat(api, config, func(m any) {
		program.Send(m)
	})
	chat.engine.SetDeepSearch(config.Chat.DeepSearch || cli.DeepSearch)
	tuiModel.SetChat(chat)
	defer chat.Shutdown()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}

func main() {
	config, cfgErr := LoadConfig()
	if cfgErr != nil {
		cfg := defaultConfig()
		config = &cfg
	}
	initLogger(config.Logging)

	ctx := kong.Parse(&cli)

	if cli.Prompt != "" {
		if err := runOneShot(config, cli.Prompt, cli.DeepSearch || config.Chat.DeepSearch); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Interactive mode
	if err := ctx.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// runOneShot asks a single question over a fresh backend session and streams
// the answer to stdout as it arrives.
func runOneShot(config *Config, prompt string, deepSearch bool) error {
	api := NewAPIClient(config.Backend.BaseURL, keyringCredential())

	ctx := context.Background()
	if timeout := config.TurnTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sessionID, body, err := api.NewConversation(ctx, prompt, deepSearch)
	if err != nil {
		return err
	}
	defer body.Close()
	slog.Info("oneshot.session", "id", sessionID)

	decoder := NewFrameDecoder()
	buf := make([]byte, 4096)
	wroteContent := false

	apply := func(frames []Frame) bool {
		for _, f := range frames {
			switch f.Kind {
			case FrameContentDelta:
				fmt.Print(f.Text)
				wroteContent = true
			case FrameToolCall:
				if f.State == ToolStateCall {
					fmt.Fprintf(os.Stderr, "[%s...]\n", f.ToolName)
				}
			case FrameEnd:
				return true
			}
		}
		return false
	}

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if apply(decoder.Feed(buf[:n])) {
				break
			}
		}
		if err == io.EOF {
			apply(decoder.Flush())
			break
		}
		if err != nil {
			return fmt.Errorf("answer stream failed: %w", err)
		}
	}

	if wroteContent {
		fmt.Println()
	}
	return nil
}
