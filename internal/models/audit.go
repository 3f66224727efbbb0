package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ResolutionLog records one supplier resolution decision. Every cascade run
// is logged, including the ones that resolve to nothing, so the accountants
// can audit why an invoice landed in the review queue.
type ResolutionLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	InvoiceID    string         `gorm:"index" json:"invoiceId"`
	SupplierName string         `json:"supplierName"`
	TaxNumber    string         `json:"taxNumber,omitempty"`
	Tier         string         `gorm:"not null;index" json:"tier"` // exact_tax, fuzzy_name, keyword, ai_fallback, none
	Score        float64        `json:"score"`
	SupplierCode string         `json:"supplierCode,omitempty"`
	RunnersUp    datatypes.JSON `gorm:"type:jsonb" json:"runnersUp,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// TableName specifies the table name for ResolutionLog model
func (ResolutionLog) TableName() string {
	return "resolution_logs"
}

// SubmissionLog records one submission attempt against the SAP gateway with
// the full payload for replay.
type SubmissionLog struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	InvoiceID       string         `gorm:"not null;index" json:"invoiceId"`
	InvoicingParty  string         `gorm:"index" json:"invoicingParty"`
	GrossAmount     float64        `json:"grossAmount"`
	Currency        string         `json:"currency"`
	Payload         datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	Status          string         `gorm:"default:'failed';index" json:"status"` // acknowledged, failed
	SupplierInvoice string         `json:"supplierInvoice,omitempty"`            // SAP document number
	FiscalYear      string         `json:"fiscalYear,omitempty"`
	ErrorMessage    string         `json:"errorMessage,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// TableName specifies the table name for SubmissionLog model
func (SubmissionLog) TableName() string {
	return "submission_logs"
}

// ToolAuditLog records every tool invocation: request, response envelope
// status and timing.
type ToolAuditLog struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	RequestID     string         `gorm:"type:uuid;index" json:"requestId"`
	ToolName      string         `gorm:"not null;index" json:"toolName"`
	AgentID       string         `gorm:"index" json:"agentId,omitempty"`
	RequestData   datatypes.JSON `gorm:"type:jsonb" json:"requestData,omitempty"`
	ResponseData  datatypes.JSON `gorm:"type:jsonb" json:"responseData,omitempty"`
	Status        string         `gorm:"default:'success';index" json:"status"` // success, not_found, error
	ErrorMessage  string         `json:"errorMessage,omitempty"`
	ExecutionTime int            `json:"executionTimeMs"`
	IPAddress     string         `json:"ipAddress,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for ToolAuditLog model
func (ToolAuditLog) TableName() string {
	return "tool_audit_logs"
}
