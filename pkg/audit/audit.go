package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/car-advisor/advisor/pkg/types"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AuditTrail writes one JSON file per completed diagnosis
type AuditTrail struct {
	auditDir string
	now      func() time.Time
}

// New creates a trail under auditDir. An empty dir disables it.
func New(auditDir string) *AuditTrail {
	return &AuditTrail{
		auditDir: auditDir,
		now:      time.Now,
	}
}

// Enabled reports whether records are written
func (at *AuditTrail) Enabled() bool {
	return at != nil && at.auditDir != ""
}

// LogDiagnosis records a diagnosis and, when present, the request built
// from it and how many cars came back
func (at *AuditTrail) LogDiagnosis(sessionID string, result *types.ProfileResult, req *types.RecommendationRequest, carCount int, metadata AuditMetadata) (string, error) {
	if !at.Enabled() || result == nil {
		return "", nil
	}

	record := AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: at.now().UTC(),
		SessionID: sessionID,
		Profile:   result.Type,
		Score:     result.Score,
		FellBack:  result.FellBack,
		AllScores: result.AllScores.Clone(),
		Request:   req,
		CarCount:  carCount,
		Metadata:  metadata,
	}
	if result.SourceAnswers != nil {
		record.Answers = *result.SourceAnswers.Clone()
	}

	return record.ID, at.writeAuditRecord(record)
}

func (at *AuditTrail) writeAuditRecord(record AuditRecord) error {
	// Ensure audit directory exists
	if err := os.MkdirAll(at.auditDir, 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	filename := fmt.Sprintf("diagnosis_%s_%s.json",
		record.Timestamp.Format("20060102_150405"),
		record.ID,
	)
	path := filepath.Join(at.auditDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create audit file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	log.WithFields(log.Fields{
		"file":    path,
		"profile": record.Profile,
	}).Info("Audit record written")
	return nil
}

// Data structures

type AuditRecord struct {
	ID        string                       `json:"id"`
	Timestamp time.Time                    `json:"timestamp"`
	SessionID string                       `json:"session_id,omitempty"`
	Profile   types.ProfileID              `json:"profile"`
	Score     int                          `json:"score"`
	FellBack  bool                         `json:"fell_back"`
	AllScores types.ProfileScores          `json:"all_scores"`
	Answers   types.AnswerSet              `json:"answers"`
	Request   *types.RecommendationRequest `json:"request,omitempty"`
	CarCount  int                          `json:"car_count"`
	Metadata  AuditMetadata                `json:"metadata"`
}

type AuditMetadata struct {
	Source    string `json:"source"` // "cli", "api"
	Mode      string `json:"mode,omitempty"`
	RemoteIP  string `json:"remote_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}
