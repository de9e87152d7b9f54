// Package cli is the interactive shell around the session controller. It is
// presentation only: it parses slash commands, renders results and maps the
// core's errors to user-facing messages. No state lives here.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"pagetalk/internal/fetch"
	"pagetalk/internal/providers"
	"pagetalk/internal/providers/registry"
	"pagetalk/internal/session"
)

// SettingAPIKey is the settings key the /key command writes to.
const SettingAPIKey = "api_key"

type SettingsStore interface {
	SetSetting(ctx context.Context, key, value string) error
}

type Config struct {
	Controller    *session.Controller
	BuildProvider func(kind string) (*session.ProviderHandle, error)
	Settings      SettingsStore
	In            io.Reader
	Out           io.Writer
	Logger        zerolog.Logger
}

type REPL struct {
	ctrl          *session.Controller
	buildProvider func(kind string) (*session.ProviderHandle, error)
	settings      SettingsStore
	in            io.Reader
	out           io.Writer
	logger        zerolog.Logger
}

func New(cfg Config) *REPL {
	return &REPL{
		ctrl:          cfg.Controller,
		buildProvider: cfg.BuildProvider,
		settings:      cfg.Settings,
		in:            cfg.In,
		out:           cfg.Out,
		logger:        cfg.Logger,
	}
}

func (r *REPL) Run(ctx context.Context) error {
	r.printf("pagetalk — load a video or webpage, then chat about it. /help for commands.")

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && ctx.Err() == nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.dispatch(ctx, line); quit {
				return nil
			}
			continue
		}
		r.ask(ctx, line)
	}
}

// dispatch runs one slash command; it returns true when the user asked to
// exit.
func (r *REPL) dispatch(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/exit", "/quit", "/bye":
		r.printf("Goodbye!")
		return true
	case "/help":
		r.help()
	case "/load":
		r.load(ctx, arg)
	case "/models":
		r.models(ctx)
	case "/model":
		r.model(ctx, arg)
	case "/provider":
		r.provider(ctx, arg)
	case "/key":
		r.key(ctx, arg)
	case "/summary":
		r.summary(ctx)
	case "/content":
		r.showContent()
	case "/hist":
		r.hist()
	case "/context":
		r.contextSize(arg)
	case "/clear":
		r.ctrl.ClearHistory()
		r.printf("Cleared history.")
	case "/reset":
		r.ctrl.Reset()
		r.printf("Session reset.")
	default:
		r.printf("Unknown command %s. /help lists commands.", cmd)
	}
	return false
}

func (r *REPL) help() {
	r.printf(strings.Join([]string{
		"Commands:",
		"  /load <url>      load a YouTube video transcript or webpage text",
		"  /summary         summarize the loaded content",
		"  /models          list models of the active provider",
		"  /model <name|#>  select a model",
		"  /provider <kind> switch provider (ollama, openrouter)",
		"  /key <value>     store the hosted-provider API key",
		"  /content         show the loaded content",
		"  /hist            show the full conversation",
		"  /context <n>     set the context budget in words",
		"  /clear           clear the conversation history",
		"  /reset           reset the whole session",
		"  /exit            quit",
		"Anything else is a question about the loaded content.",
	}, "\n"))
}

func (r *REPL) load(ctx context.Context, url string) {
	if url == "" {
		r.printf("Usage: /load <url>")
		return
	}
	res, err := r.ctrl.Load(ctx, url)
	if err != nil {
		r.renderErr(err)
		return
	}
	r.printf("Loaded %s content (%d words). History cleared.", res.Kind, len(strings.Fields(res.Text)))
}

func (r *REPL) models(ctx context.Context) {
	models, err := r.ctrl.ListModels(ctx)
	if err != nil {
		r.renderErr(err)
		return
	}
	active := r.ctrl.Model()
	for i, m := range models {
		marker := " "
		if m == active {
			marker = "*"
		}
		r.printf("%d: %s %s", i, marker, m)
	}
}

func (r *REPL) model(ctx context.Context, arg string) {
	if arg == "" {
		r.printf("Active model: %s", orUnset(r.ctrl.Model()))
		return
	}

	name := arg
	if idx, err := strconv.Atoi(arg); err == nil {
		models, err := r.ctrl.ListModels(ctx)
		if err != nil {
			r.renderErr(err)
			return
		}
		if idx < 0 || idx >= len(models) {
			r.printf("Model index %d out of range.", idx)
			return
		}
		name = models[idx]
	}

	if err := r.ctrl.SetModel(ctx, name); err != nil {
		r.renderErr(err)
		return
	}
	r.printf("Using model: %s", name)
}

func (r *REPL) provider(ctx context.Context, kind string) {
	if kind == "" {
		r.printf("Active provider: %s", r.ctrl.ProviderKind())
		return
	}
	handle, err := r.buildProvider(kind)
	if err != nil {
		r.renderErr(err)
		return
	}
	r.ctrl.SwitchProvider(ctx, handle)
	r.printf("Switched to %s. History and content preserved.", handle.Kind())
}

func (r *REPL) key(ctx context.Context, value string) {
	if value == "" {
		r.printf("Usage: /key <value>")
		return
	}
	if r.settings == nil {
		r.printf("No settings store configured; set OPENROUTER_API_KEY instead.")
		return
	}
	if err := r.settings.SetSetting(ctx, SettingAPIKey, value); err != nil {
		r.renderErr(err)
		return
	}
	r.printf("API key stored. /provider openrouter to use it.")
}

func (r *REPL) ask(ctx context.Context, question string) {
	r.printf("Assistant: thinking...")
	answer, err := r.ctrl.Ask(ctx, question)
	if err != nil {
		r.renderErr(err)
		return
	}
	r.printf("Assistant: %s", answer)
}

func (r *REPL) summary(ctx context.Context) {
	r.printf("Assistant: summarizing...")
	summary, err := r.ctrl.Summarize(ctx)
	if err != nil {
		r.renderErr(err)
		return
	}
	r.printf("--- SUMMARY ---\n%s", summary)
}

func (r *REPL) showContent() {
	content := r.ctrl.Content()
	if content == "" {
		r.printf("(no content)")
		return
	}
	r.printf("%s", content)
}

func (r *REPL) hist() {
	turns := r.ctrl.History()
	if len(turns) == 0 {
		r.printf("(empty history)")
		return
	}
	for i, t := range turns {
		preview := strings.ReplaceAll(t.Text, "\n", " ")
		if len([]rune(preview)) > 100 {
			preview = string([]rune(preview)[:100])
		}
		r.printf("[%d] %s: %s", i, t.Role, preview)
	}
}

func (r *REPL) contextSize(arg string) {
	if arg == "" {
		r.printf("Context budget: %d words", r.ctrl.ContextSize())
		return
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		r.printf("Usage: /context <positive integer>")
		return
	}
	if err := r.ctrl.SetContextSize(n); err != nil {
		r.renderErr(err)
		return
	}
	r.printf("Context budget set to %d words.", n)
}

func (r *REPL) renderErr(err error) {
	var fetchErr *fetch.Error
	switch {
	case errors.As(err, &fetchErr):
		r.printf("Could not load content: %s", fetchErr.Reason)
	case errors.Is(err, session.ErrNoContent):
		r.printf("No content loaded. Use /load <url> first.")
	case errors.Is(err, session.ErrEmptyQuestion):
		r.printf("Nothing to ask.")
	case errors.Is(err, session.ErrInvalidContextSize):
		r.printf("Context size must be a positive integer.")
	case errors.Is(err, session.ErrUnknownModel):
		r.printf("That model is not available. /models lists the options.")
	case errors.Is(err, registry.ErrUnknownKind):
		r.printf("Unknown provider. Choose ollama or openrouter.")
	case errors.Is(err, registry.ErrMissingAPIKey):
		r.printf("OpenRouter needs an API key. Set OPENROUTER_API_KEY or use /key <value>.")
	case errors.Is(err, providers.ErrAuth):
		r.printf("The provider rejected the API key.")
	case errors.Is(err, providers.ErrUnavailable):
		r.printf("The provider is unreachable. Is it running?")
	default:
		r.logger.Debug().Err(err).Msg("command failed")
		r.printf("Error: %v", err)
	}
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func orUnset(s string) string {
	if s == "" {
		return "(not selected yet)"
	}
	return s
}
