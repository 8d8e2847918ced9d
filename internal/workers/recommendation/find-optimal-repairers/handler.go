package findoptimalrepairers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"repair-recommender/internal/common/camunda"
	"repair-recommender/internal/common/config"
	"repair-recommender/internal/common/errors"
	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/common/metrics"
	"repair-recommender/internal/common/observability"
	"repair-recommender/internal/common/validation"
	"repair-recommender/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "find-optimal-repairers"

// Recommender is the part of the engine the worker depends on.
type Recommender interface {
	FindOptimalRepairers(ctx context.Context, criteria models.RecommendationCriteria) (*models.RecommendationResult, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	camunda      *camunda.Client
	engine       Recommender
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	jobWorker    worker.JobWorker
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Camunda       *camunda.Client
	Engine        Recommender
	CustomConfig  *Config
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("%s: recommendation engine is required", TaskType)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance.With(map[string]interface{}{"worker": TaskType}),
		camunda:      opts.Camunda,
		engine:       opts.Engine,
		validator:    validation.MustCriteriaValidator(),
		errorHandler: errors.NewErrorHandler(loggerInstance),
		obs:          opts.Observability,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing recommendation request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	if !h.config.Enabled {
		h.logger.Info("Worker disabled by configuration", nil)
		h.completeJob(ctx, client, job, &Output{})
		return
	}

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		h.recordOutcome(ctx, startTime, "failed")
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		h.recordOutcome(ctx, startTime, "failed")
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.recordOutcome(ctx, startTime, "completed")
}

func (h *Handler) recordOutcome(ctx context.Context, start time.Time, status string) {
	h.obs.RecordJobProcessed(ctx, status)
	h.obs.RecordJobDuration(ctx, time.Since(start), status)
}

// parseInput accepts the criteria either at the top level of the job
// variables or nested under a "criteria" variable.
func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidCriteriaError(fmt.Sprintf("unreadable job variables: %v", err))
	}

	criteriaVars := variables
	if nested, ok := variables["criteria"].(map[string]interface{}); ok {
		criteriaVars = nested
	}

	if res := h.validator.ValidateCriteria(criteriaVars); !res.Valid {
		return nil, res.Err()
	}

	raw, err := json.Marshal(criteriaVars)
	if err != nil {
		return nil, errors.NewInvalidCriteriaError(err.Error())
	}
	input := &Input{}
	if err := json.Unmarshal(raw, &input.Criteria); err != nil {
		return nil, errors.NewInvalidCriteriaError(err.Error())
	}

	if id, ok := variables["requestId"].(string); ok && id != "" {
		input.RequestID = id
	} else {
		input.RequestID = uuid.NewString()
	}
	return input, nil
}

// Execute runs the engine for one request.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.engine.FindOptimalRepairers(ctx, input.Criteria)
	if err != nil {
		return nil, err
	}

	output := &Output{
		RequestID:       input.RequestID,
		Found:           len(result.Recommendations) > 0,
		Recommendations: result.Recommendations,
		Alternatives:    result.Alternatives,
		Reasoning:       result.Reasoning,
		CandidateCount:  result.CandidateCount,
	}
	if output.Recommendations == nil {
		output.Recommendations = []models.ScoredRepairer{}
	}
	if output.Alternatives == nil {
		output.Alternatives = []models.ScoredRepairer{}
	}
	if output.Reasoning == nil {
		output.Reasoning = []string{}
	}
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(output.Variables())
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("Recommendation completed", map[string]interface{}{
		"jobKey":          job.GetKey(),
		"requestId":       output.RequestID,
		"recommendations": len(output.Recommendations),
		"candidates":      output.CandidateCount,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

// Register opens the Zeebe job worker. A disabled worker is a no-op.
func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", nil)
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("%s: camunda client is required to register", TaskType)
	}

	h.jobWorker = h.camunda.GetClient().NewJobWorker().
		JobType(TaskType).
		Handler(h.Handle).
		MaxJobsActive(h.config.MaxJobsActive).
		Timeout(h.config.Timeout).
		Name(fmt.Sprintf("%s-worker", TaskType)).
		Open()

	h.logger.Info("Worker registered with Camunda", map[string]interface{}{
		"taskType":      TaskType,
		"maxJobsActive": h.config.MaxJobsActive,
		"timeout":       h.config.Timeout.String(),
	})
	return nil
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.logger.Info("Shutting down worker gracefully", nil)
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func extractErrorCode(err error) string {
	if stdErr, ok := errors.AsStandardError(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}
