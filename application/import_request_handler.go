package application

import (
	"context"
	"encoding/json"
	"fmt"

	"lending/domain/entities"

	log "github.com/sirupsen/logrus"
)

// ImportRequestSubject is the subject on which import batches arrive
const ImportRequestSubject = "ledger.import.requested"

// ImportRequest is the message body of an import request. RequestID names the
// batch; a redelivered request only applies rows its earlier deliveries did not.
type ImportRequest struct {
	RequestID string               `json:"request_id"`
	Source    string               `json:"source,omitempty"`
	Rows      []entities.ImportRow `json:"rows"`
}

// ImportRequestHandler applies import batches received from the message bus
type ImportRequestHandler struct {
	importer BatchImporter
}

// NewImportRequestHandler creates a new import request handler
func NewImportRequestHandler(importer BatchImporter) *ImportRequestHandler {
	return &ImportRequestHandler{importer: importer}
}

// HandleMessage decodes and imports one batch. Row failures are reported in
// the batch summary and do not fail the message. A batch that aborts after
// rows were committed is acknowledged and reported through the batch event;
// only malformed payloads and an abort before any row was committed fail.
func (h *ImportRequestHandler) HandleMessage(ctx context.Context, data []byte) error {
	var req ImportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to decode import request: %w", err)
	}
	if req.RequestID == "" {
		return fmt.Errorf("import request has no request_id")
	}
	if len(req.Rows) == 0 {
		log.WithField("requestID", req.RequestID).Warn("Ignoring empty import request")
		return nil
	}

	logger := log.WithFields(log.Fields{
		"requestID": req.RequestID,
		"source":    req.Source,
	})

	summary, err := h.importer.ImportBatchWithID(ctx, req.RequestID, req.Rows)
	if err != nil {
		if summary == nil || !summary.Committed() {
			return fmt.Errorf("failed to import request %s: %w", req.RequestID, err)
		}
		logger.WithFields(log.Fields{
			"succeeded":       summary.Succeeded,
			"alreadyImported": summary.AlreadyImported,
			"error":           err,
		}).Error("Import request aborted after committing rows, remaining rows are not retried")
		return nil
	}

	logger.WithFields(log.Fields{
		"batchID":         summary.BatchID,
		"succeeded":       summary.Succeeded,
		"alreadyImported": summary.AlreadyImported,
		"failed":          summary.Failed(),
	}).Info("Processed import request")
	return nil
}
