// internal/workers/dialog/advance-dialog/handler.go
package advancedialog

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"voice-assistant/internal/common/errors"
	"voice-assistant/internal/common/logger"
	"voice-assistant/internal/common/metrics"
	"voice-assistant/internal/common/validation"
	"voice-assistant/internal/dialog"
)

const (
	TaskType = "dialog-advance"
)

type Handler struct {
	config       *Config
	machine      *dialog.Machine
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, machine *dialog.Machine, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		machine:      machine,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := DecodeInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// DecodeInput validates the job variables and extracts the turn input.
func DecodeInput(variables string) (*Input, error) {
	result, err := validation.ValidateBytes(validation.SchemaDialogJob, []byte(variables))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if !result.Valid {
		if result.IsMissing("transcript") {
			return nil, errors.NewTranscriptMissingError()
		}
		return nil, errors.NewInputValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInputValidationError(err.Error())
	}
	return &input, nil
}

// Execute advances the conversation by one turn. It never fails for a valid
// input; a transcript no edge matches keeps the current state.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewTranscriptMissingError()
	}

	turn := h.machine.Step(input.Transcript, input.DialogState)

	outcome := string(turn.NextState)
	if turn.Fallback {
		outcome = "fallback"
	}
	metrics.TurnsTotal.WithLabelValues("script", outcome).Inc()

	h.logger.Info("dialog advanced", map[string]interface{}{
		"from":     h.machine.Resolve(input.DialogState),
		"to":       turn.NextState,
		"fallback": turn.Fallback,
		"isFinal":  turn.IsFinal,
	})

	return &Output{
		ResponseText:       turn.ResponseText,
		ParticleExpression: turn.Expression,
		DialogState:        turn.NextState,
		IsFinal:            turn.IsFinal,
		Fallback:           turn.Fallback,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
