// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_model_server.go -package=mocks github.com/jeranaias/jarvis/internal/commands ModelServer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeranaias/jarvis/internal/chat"
	"github.com/jeranaias/jarvis/internal/inference"
	"github.com/jeranaias/jarvis/internal/model"
	"github.com/jeranaias/jarvis/internal/ollama"
	"github.com/jeranaias/jarvis/internal/util"
)

// Replies added as info messages.
const (
	MsgParametersUpdated  = "Parameters updated"
	MsgNoParameters       = "No parameters specified"
	MsgCopied             = "Conversation copied to clipboard."
	MsgModelInfoFailedFmt = "Model info request failed: "
)

// ModelServer is the part of the Ollama client the router needs.
type ModelServer interface {
	HealthCheck(ctx context.Context) bool
	ShowModel(ctx context.Context, name string) (*ollama.ShowModelResponse, error)
}

// ServerFactory creates a ModelServer for a host.
type ServerFactory func(host string) ModelServer

// Generator produces replies. *chat.Orchestrator implements it.
type Generator interface {
	Generate(ctx context.Context, sink chat.Sink, useCodeContext bool) (chat.Result, error)
}

// Clipboard receives the /copy transcript.
type Clipboard interface {
	WriteAll(text string) error
}

// RouterConfig configures a Router.
type RouterConfig struct {
	Conversation *model.Conversation
	Store        *inference.Store
	Generator    Generator
	Servers      ServerFactory
	Clipboard    Clipboard
	// OnResult, when set, receives every generation that was not cancelled.
	OnResult func(chat.Result)
	Logger   *slog.Logger
}

// Router dispatches parsed commands against a conversation.
type Router struct {
	conv      *model.Conversation
	store     *inference.Store
	gen       Generator
	servers   ServerFactory
	clipboard Clipboard
	onResult  func(chat.Result)
	logger    *slog.Logger
}

// NewRouter creates a router.
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		conv:      cfg.Conversation,
		store:     cfg.Store,
		gen:       cfg.Generator,
		servers:   cfg.Servers,
		clipboard: cfg.Clipboard,
		onResult:  cfg.OnResult,
		logger:    logger.With("component", "commands"),
	}
}

// Submit handles one line of user input. Chat input starts a generation and
// returns its handle; every other command completes before Submit returns
// and the result is nil. Blank input is ignored.
func (r *Router) Submit(ctx context.Context, input string, cc *model.CodeContext) *model.Generation {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	cmd := Parse(input)
	r.logger.Debug("command", "name", cmd.Name(), "input", util.Preview(input, 60))

	switch c := cmd.(type) {
	case ChatCommand:
		return r.startChat(ctx, model.NewUserMessage(input, cc), true)
	case PlainChatCommand:
		return r.startChat(ctx, model.NewUserMessage(input, cc), false)
	case NewConversationCommand:
		r.conv.Clear()
		r.store.Invalidate()
		return nil
	default:
		r.conv.CancelGeneration()
		r.conv.AddMessage(model.NewUserMessage(input, cc))
		r.conv.AddMessage(model.NewInfoMessage(r.Execute(ctx, c)))
		return nil
	}
}

// Execute runs an administrative command and returns its reply.
func (r *Router) Execute(ctx context.Context, cmd Command) string {
	switch c := cmd.(type) {
	case HelpCommand:
		return model.HelpMessage().Content

	case ModelCommand:
		if c.Model == "" {
			return r.modelInfo(ctx)
		}
		sess := r.store.SetModel(c.Model)
		return "Model changed to " + sess.Model()

	case ModelSetCommand:
		return r.setParameters(c)

	case HostCommand:
		if c.Host == "" {
			return "Host is " + r.store.Current().Host()
		}
		sess := r.store.SetHost(c.Host)
		return "Host changed to " + sess.Host()

	case CopyCommand:
		if r.clipboard == nil {
			return "Copy failed: no clipboard available"
		}
		if err := r.clipboard.WriteAll(Transcript(r.conv.Messages())); err != nil {
			r.logger.Warn("clipboard write failed", "error", err)
			return "Copy failed: " + err.Error()
		}
		return MsgCopied

	default:
		return fmt.Sprintf("Unsupported command %s", cmd.Name())
	}
}

func (r *Router) setParameters(c ModelSetCommand) string {
	errs := append([]string{}, c.Errors...)
	if len(c.Assignments) == 0 && len(errs) == 0 {
		return MsgNoParameters
	}
	if len(c.Assignments) > 0 {
		_, rejected := r.store.SetParameters(c.Assignments)
		errs = append(errs, rejected...)
	}
	if len(errs) > 0 {
		return strings.Join(errs, "\n")
	}
	return MsgParametersUpdated
}

func (r *Router) modelInfo(ctx context.Context) string {
	sess := r.store.Current()
	info, err := r.servers(sess.Host()).ShowModel(ctx, sess.Model())
	if err != nil {
		r.logger.Debug("model info failed", "model", sess.Model(), "error", err)
		if code := ollama.StatusCode(err); code != 0 {
			return fmt.Sprintf("%sstatus %d", MsgModelInfoFailedFmt, code)
		}
		return MsgModelInfoFailedFmt + err.Error()
	}
	return ollama.FormatModelInfo(info) + "\n\n" + sess.Parameters().Info()
}

// startChat appends msg and generates a reply in the background.
func (r *Router) startChat(ctx context.Context, msg model.Message, useCodeContext bool) *model.Generation {
	return r.conv.StartGeneration(ctx, msg, func(ctx context.Context, g *model.Generation) {
		sess := r.store.Current()
		if !r.servers(sess.Host()).HealthCheck(ctx) {
			if ctx.Err() == nil {
				g.AddMessage(model.NewInfoMessage(ConnectivityMessage(sess.Host(), sess.Model())))
			}
			return
		}

		res, err := r.gen.Generate(ctx, g, useCodeContext)
		if err != nil {
			g.Cancel()
			return
		}
		if res.Reply != "" {
			g.AddMessage(model.NewAssistantMessage(res.Reply))
		}
		if r.onResult != nil && g.Active() {
			r.onResult(res)
		}
	})
}

// ConnectivityMessage tells the user the server at host cannot be reached.
func ConnectivityMessage(host, modelName string) string {
	return "I can't access Ollama at ```" + host + "```. You need to install it first and download the ```" + modelName + "``` model."
}
