package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alfred/internal/agentclient"
	"alfred/internal/metrics"
	"alfred/internal/selector"
	"alfred/internal/translator"
	"alfred/internal/types"

	"go.uber.org/zap"
)

// Dispatcher posts a command envelope to an agent
type Dispatcher interface {
	Execute(ctx context.Context, addr string, msg *types.Message) (*types.CommandResult, error)
}

// Snapshotter provides the current agent set
type Snapshotter interface {
	All() []types.AgentDescriptor
}

// HistoryAppender records successfully dispatched commands
type HistoryAppender interface {
	Append(ctx context.Context, entry types.HistoryEntry) error
}

// Router translates user input, picks an agent and dispatches the command
type Router struct {
	translator translator.Translator
	directory  Snapshotter
	dispatcher Dispatcher
	history    HistoryAppender
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a Router
func New(tr translator.Translator, directory Snapshotter, dispatcher Dispatcher, history HistoryAppender, m *metrics.Metrics, logger *zap.Logger) *Router {
	if tr == nil {
		tr = translator.PassThrough{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		translator: tr,
		directory:  directory,
		dispatcher: dispatcher,
		history:    history,
		metrics:    m,
		logger:     logger.Named("router"),
		now:        time.Now,
	}
}

// Execute runs userInput on the best available agent. It always returns a
// result; failures are reported through Success and Error. A caller going
// away does not abort a dispatched command or its history record.
func (r *Router) Execute(ctx context.Context, userInput string) types.CommandResult {
	ctx = context.WithoutCancel(ctx)
	parsed := r.translate(ctx, userInput)

	agent, ok := selector.Select(parsed, r.directory.All())
	if !ok {
		r.logger.Warn("No agent available", zap.String("input", userInput))
		r.metrics.Command(metrics.OutcomeNoAgent)
		return types.FailedResult(userInput, types.NoAgentID, types.ErrNoHealthyAgent.Error())
	}

	logger := r.logger.With(
		zap.String("agent_id", agent.ID),
		zap.String("command", parsed.Command))
	logger.Info("Dispatching command", zap.String("target_os", parsed.TargetOS))

	msg := types.NewCommandMessage(agent.ID, parsed.Command)
	result, err := r.dispatcher.Execute(ctx, agent.Address(), msg)
	if err != nil {
		r.metrics.Command(metrics.OutcomeFailed)

		var statusErr *agentclient.StatusError
		if errors.As(err, &statusErr) {
			logger.Warn("Agent rejected command", zap.Int("status", statusErr.Code))
			return types.FailedResult(userInput, agent.ID, statusErr.Error())
		}
		logger.Error("Failed to communicate with agent", zap.Error(err))
		return types.FailedResult(userInput, agent.ID, fmt.Sprintf("failed to communicate with agent: %v", err))
	}

	if result.AgentID == "" {
		result.AgentID = agent.ID
	}
	if result.Command == "" {
		result.Command = parsed.Command
	}

	if result.Success {
		r.metrics.Command(metrics.OutcomeSuccess)
	} else {
		r.metrics.Command(metrics.OutcomeFailed)
	}

	entry := types.HistoryEntry{
		Timestamp: r.now(),
		UserInput: userInput,
		Parsed:    parsed,
		AgentName: agent.Name,
		Result:    *result,
	}
	if err := r.history.Append(ctx, entry); err != nil {
		logger.Error("Failed to record command history", zap.Error(err))
	}

	logger.Info("Command finished",
		zap.Bool("success", result.Success),
		zap.Int64("execution_time_ms", result.ExecutionTimeMs))
	return *result
}

// translate never fails; any translator error degrades to pass-through
func (r *Router) translate(ctx context.Context, userInput string) types.ParsedCommand {
	parsed, err := r.translator.Translate(ctx, userInput)
	if err == nil && parsed.Command != "" {
		if parsed.TargetOS == "" {
			parsed.TargetOS = types.TargetAny
		}
		return parsed
	}

	description := "Direct command execution"
	if err != nil {
		r.logger.Warn("Translation failed, passing input through", zap.Error(err))
		description = fmt.Sprintf("Direct command execution (%v)", err)
	}
	return types.PassThrough(userInput, description)
}
