// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/jarvis/internal/inference"
	"github.com/jeranaias/jarvis/internal/model"
	"github.com/jeranaias/jarvis/internal/ollama"
)

// Messages added to the conversation while making the model available.
const (
	MsgDownloading       = "Downloading model..."
	MsgDownloadFailedFmt = "Model download failed: "
	MsgDownloaded        = "Model downloaded successfully."
	MsgDownloadTimedOut  = "Model download failed."
)

// ModelServer is the part of the Ollama client a generation needs.
type ModelServer interface {
	IsModelAvailable(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string) error
	Stream(ctx context.Context, req ollama.ChatRequest) (*ollama.Stream, error)
	Cancel()
}

// ServerFactory creates a ModelServer for a host.
type ServerFactory func(host string) ModelServer

// Sink receives everything a generation writes. *model.Generation
// implements it and drops writes once the generation is no longer active.
type Sink interface {
	LastUserMessage() (model.Message, bool)
	IsFirstUserMessage() bool
	AppendToInProgress(text string) bool
	AddMessage(m model.Message) bool
}

// Config configures an Orchestrator.
type Config struct {
	Store   *inference.Store
	Servers ServerFactory

	// SystemPrompt defaults to SystemPrompt.
	SystemPrompt string
	// PollInterval between availability checks while downloading (default 3s).
	PollInterval time.Duration
	// DownloadTimeout bounds the wait for a pulled model (default 10m).
	DownloadTimeout time.Duration

	Logger *slog.Logger
}

// Orchestrator produces replies for a conversation.
type Orchestrator struct {
	store        *inference.Store
	servers      ServerFactory
	systemPrompt string
	poll         time.Duration
	download     time.Duration
	logger       *slog.Logger

	mu          sync.Mutex
	server      ModelServer
	serverHost  string
	memory      *Memory
	memoryEpoch uint64
	run         uint64
	state       State
	onState     []func(State)
}

// NewOrchestrator creates an orchestrator. It cancels every in-flight request
// whenever the session in cfg.Store changes.
func NewOrchestrator(cfg Config) *Orchestrator {
	o := &Orchestrator{
		store:        cfg.Store,
		servers:      cfg.Servers,
		systemPrompt: cfg.SystemPrompt,
		poll:         cfg.PollInterval,
		download:     cfg.DownloadTimeout,
		logger:       cfg.Logger,
		memory:       NewMemory(),
	}
	if o.systemPrompt == "" {
		o.systemPrompt = SystemPrompt
	}
	if o.poll <= 0 {
		o.poll = 3 * time.Second
	}
	if o.download <= 0 {
		o.download = 10 * time.Minute
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "chat")
	o.memoryEpoch = o.store.Current().Epoch()

	o.store.OnChange(func(inference.Session) { o.CancelRequests() })
	return o
}

// State returns the state of the latest generation.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OnStateChange registers fn to be called on every state transition of the
// latest generation. Transitions of superseded generations are not reported.
func (o *Orchestrator) OnStateChange(fn func(State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onState = append(o.onState, fn)
}

// CancelRequests aborts every request of the current server.
func (o *Orchestrator) CancelRequests() {
	o.mu.Lock()
	server := o.server
	o.mu.Unlock()
	if server != nil {
		server.Cancel()
	}
}

// MemoryLen returns the number of messages in chat memory.
func (o *Orchestrator) MemoryLen() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.memory.Len()
}

// beginRun starts tracking a new generation and returns its run number.
func (o *Orchestrator) beginRun() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.run++
	return o.run
}

// setState records s for run. A run that is no longer the latest only logs.
func (o *Orchestrator) setState(run uint64, s State) {
	o.mu.Lock()
	if run != o.run {
		o.mu.Unlock()
		o.logger.Debug("stale generation state", "run", run, "state", s.String())
		return
	}
	o.state = s
	hooks := append([]func(State){}, o.onState...)
	o.mu.Unlock()

	o.logger.Debug("generation state", "run", run, "state", s.String())
	for _, fn := range hooks {
		fn(s)
	}
}

// prepare returns the server and memory for sess, replacing them when the
// session changed since the last call.
func (o *Orchestrator) prepare(sess inference.Session) (ModelServer, *Memory) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.server == nil || o.serverHost != sess.Host() {
		if o.server != nil {
			o.server.Cancel()
		}
		o.server = o.servers(sess.Host())
		o.serverHost = sess.Host()
	}
	if sess.Epoch() != o.memoryEpoch {
		o.memory = NewMemory()
		o.memoryEpoch = sess.Epoch()
	}
	return o.server, o.memory
}

// Generate produces one reply for the last user message in sink.
//
// On success it returns the trimmed reply and StateCompleted. When the model
// cannot be made available it returns an empty reply and StateErrored after
// telling the user through sink. A failure while streaming appends an error
// note to the in-progress text and returns the partial reply plus the note.
// When ctx is cancelled it returns StateCancelled and ctx's error, and
// writes nothing further to sink.
func (o *Orchestrator) Generate(ctx context.Context, sink Sink, useCodeContext bool) (Result, error) {
	run := o.beginRun()
	sess := o.store.Current()
	server, memory := o.prepare(sess)
	log := o.logger.With("model", sess.Model(), "host", sess.Host())

	cancelled := func() (Result, error) {
		o.setState(run, StateCancelled)
		log.Debug("generation cancelled")
		return Result{State: StateCancelled}, ctx.Err()
	}

	o.setState(run, StateAvailabilityCheck)
	if !o.ensureModelAvailable(ctx, run, server, sess.Model(), sink) {
		if ctx.Err() != nil {
			return cancelled()
		}
		o.setState(run, StateErrored)
		return Result{State: StateErrored}, nil
	}
	if ctx.Err() != nil {
		return cancelled()
	}

	prompt := NoMessagePrompt
	if msg, ok := sink.LastUserMessage(); ok {
		prompt = BuildPrompt(msg, sink.IsFirstUserMessage(), useCodeContext)
	}

	params := sess.Parameters()
	req := ollama.ChatRequest{
		Model:     sess.Model(),
		Messages:  memory.Window(o.systemPrompt, prompt, params.ContextWindowSize),
		Options:   OptionsFromParameters(params),
		KeepAlive: sess.KeepAlive().String(),
	}

	o.setState(run, StateStreaming)
	stream, err := server.Stream(ctx, req)
	if err != nil {
		if ctx.Err() != nil || ollama.IsCanceled(err) {
			return cancelled()
		}
		return o.fail(run, log, sink, "", err)
	}
	defer stream.Cancel()

	var partial strings.Builder
	for {
		if ctx.Err() != nil {
			return cancelled()
		}

		select {
		case <-ctx.Done():
			return cancelled()

		case ev, ok := <-stream.Events():
			if ctx.Err() != nil {
				return cancelled()
			}
			if !ok {
				return o.fail(run, log, sink, partial.String(), errors.New("stream closed unexpectedly"))
			}

			switch ev.Kind {
			case ollama.EventToken:
				partial.WriteString(ev.Content)
				sink.AppendToInProgress(ev.Content)

			case ollama.EventDone:
				reply := strings.TrimSpace(ev.Content)
				memory.Add(prompt, reply)
				o.setState(run, StateCompleted)
				if ev.Stats != nil {
					log.Info("reply completed", "stats", ev.Stats.Format())
				}
				return Result{State: StateCompleted, Reply: reply, Stats: ev.Stats}, nil

			case ollama.EventError:
				if ollama.IsCanceled(ev.Err) {
					return o.cancelledByClient(run)
				}
				return o.fail(run, log, sink, partial.String(), ev.Err)
			}
		}
	}
}

// cancelledByClient handles a stream aborted through ModelServer.Cancel,
// e.g. because the session changed.
func (o *Orchestrator) cancelledByClient(run uint64) (Result, error) {
	o.setState(run, StateCancelled)
	return Result{State: StateCancelled}, context.Canceled
}

func (o *Orchestrator) fail(run uint64, log *slog.Logger, sink Sink, partial string, err error) (Result, error) {
	note := ErrorNote(err)
	sink.AppendToInProgress(note)
	o.setState(run, StateErrored)
	log.Warn("generation failed", "error", err)
	return Result{State: StateErrored, Reply: strings.TrimSpace(partial + note)}, nil
}

// ensureModelAvailable pulls the model when the server does not have it and
// waits for it to appear. Progress is reported to sink as info messages.
func (o *Orchestrator) ensureModelAvailable(ctx context.Context, run uint64, server ModelServer, name string, sink Sink) bool {
	if server.IsModelAvailable(ctx, name) {
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	o.setState(run, StateDownloading)
	sink.AddMessage(model.NewInfoMessage(MsgDownloading))

	pullCtx, cancel := context.WithTimeout(ctx, o.download)
	defer cancel()

	if err := server.PullModel(pullCtx, name); err != nil {
		if ctx.Err() != nil {
			return false
		}
		if pullCtx.Err() != nil {
			sink.AddMessage(model.NewInfoMessage(MsgDownloadTimedOut))
			return false
		}
		o.logger.Warn("model pull failed", "model", name, "error", err)
		sink.AddMessage(model.NewInfoMessage(MsgDownloadFailedFmt + err.Error()))
		return false
	}

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()
	for {
		if server.IsModelAvailable(ctx, name) {
			sink.AddMessage(model.NewInfoMessage(MsgDownloaded))
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-pullCtx.Done():
			sink.AddMessage(model.NewInfoMessage(MsgDownloadTimedOut))
			return false
		case <-ticker.C:
		}
	}
}

// OptionsFromParameters maps session parameters to request options.
func OptionsFromParameters(p inference.Parameters) *ollama.Options {
	opts := &ollama.Options{
		Temperature:      &p.Temperature,
		TopP:             &p.TopP,
		TopK:             &p.TopK,
		RepeatPenalty:    &p.RepeatPenalty,
		NumCtx:           &p.ContextWindowSize,
		NumPredict:       p.MaxTokens,
		Seed:             p.Seed,
		PresencePenalty:  p.PresencePenalty,
		FrequencyPenalty: p.FrequencyPenalty,
	}
	if len(p.StopSequences) > 0 {
		opts.Stop = p.StopSequences
	}
	return opts
}
