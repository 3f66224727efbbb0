package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/datec-bo/facturaflow/internal/database"
	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/datec-bo/facturaflow/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Envelope statuses. "not_found" is reserved for empty outcomes that are not
// failures; everything broken is "error".
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// ExecutionContext holds the caller identity of one tool invocation.
type ExecutionContext struct {
	ToolName  string
	Params    json.RawMessage
	AgentID   string
	IPAddress string
}

// Result is the uniform tool envelope.
type Result struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Executor runs registered tools and audits every invocation.
type Executor struct {
	db       *database.DB // nil disables audit persistence
	registry *Registry
	log      *logrus.Logger
}

// NewExecutor creates a tool executor.
func NewExecutor(db *database.DB, registry *Registry, log *logrus.Logger) *Executor {
	return &Executor{db: db, registry: registry, log: log}
}

// Execute runs one tool and maps its outcome onto the envelope. Errors never
// escape as Go errors; the caller always gets an envelope.
func (e *Executor) Execute(ctx context.Context, execCtx *ExecutionContext) *Result {
	start := time.Now()
	requestID := uuid.NewString()

	tool, err := e.registry.Get(execCtx.ToolName)
	if err != nil {
		result := &Result{Status: StatusError, Error: err.Error()}
		e.auditLog(execCtx, result, requestID, time.Since(start))
		return result
	}

	data, err := tool.Handler(ctx, execCtx.Params)
	result := e.mapOutcome(data, err)

	e.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"tool":       execCtx.ToolName,
		"status":     result.Status,
		"duration":   time.Since(start).Milliseconds(),
	}).Info("Tool executed")

	e.auditLog(execCtx, result, requestID, time.Since(start))
	return result
}

// mapOutcome translates the error taxonomy onto envelope statuses.
func (e *Executor) mapOutcome(data interface{}, err error) *Result {
	if err == nil {
		return &Result{Status: StatusSuccess, Data: data}
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return &Result{Status: StatusNotFound, Error: notFound.Reason}
	}

	var validation *invoice.ValidationError
	if errors.As(err, &validation) {
		return &Result{Status: StatusError, Error: validation.Error()}
	}

	return &Result{Status: StatusError, Error: err.Error()}
}

// auditLog persists one invocation record.
func (e *Executor) auditLog(execCtx *ExecutionContext, result *Result, requestID string, elapsed time.Duration) {
	if e.db == nil {
		return
	}

	entry := models.ToolAuditLog{
		RequestID:     requestID,
		ToolName:      execCtx.ToolName,
		AgentID:       execCtx.AgentID,
		Status:        result.Status,
		ErrorMessage:  result.Error,
		ExecutionTime: int(elapsed.Milliseconds()),
		IPAddress:     execCtx.IPAddress,
	}
	if len(execCtx.Params) > 0 {
		entry.RequestData = datatypes.JSON(execCtx.Params)
	}
	if result.Data != nil {
		if raw, err := json.Marshal(result.Data); err == nil {
			entry.ResponseData = datatypes.JSON(raw)
		}
	}

	if err := e.db.Create(&entry).Error; err != nil {
		e.log.WithError(err).Warn("Failed to persist tool audit log")
	}
}
