package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"remittance-reconciliation-service/internal/reconciler"
	apperrors "remittance-reconciliation-service/pkg/errors"
)

// allowedExtensions are the upload types accepted as delimited text tables.
var allowedExtensions = map[string]bool{
	".csv": true,
	".txt": true,
	".tsv": true,
}

// handleUpload runs one reconciliation pass over the uploaded deposit
// export. Validation failures reject the request before any decoding or
// matching; a validated request always returns the full ordered result set.
func (s *Server) handleUpload(c *gin.Context) {
	accountID := c.GetHeader("X-Account-ID")
	if accountID == "" {
		accountID = s.config.DefaultAccountID
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		rejectWith(c, apperrors.RejectedInput(apperrors.CodeMissingFile, ""))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		rejectWith(c, apperrors.RejectedInput(apperrors.CodeWrongFileType, header.Filename))
		return
	}

	if header.Size > reconciler.MaxPayloadBytes {
		rejectWith(c, apperrors.RejectedInput(apperrors.CodeFileTooLarge,
			fmt.Sprintf("limit is %d bytes", int64(reconciler.MaxPayloadBytes))))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(file, reconciler.MaxPayloadBytes+1))
	if err != nil {
		s.logger.WithError(err).Error("failed to read uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal failure"})
		return
	}
	if int64(len(payload)) > reconciler.MaxPayloadBytes {
		rejectWith(c, apperrors.RejectedInput(apperrors.CodeFileTooLarge,
			fmt.Sprintf("limit is %d bytes", int64(reconciler.MaxPayloadBytes))))
		return
	}

	result, err := s.service.Run(c.Request.Context(), accountID, payload)
	if err != nil {
		if re, ok := apperrors.AsReconcilerError(err); ok && apperrors.IsRejectedInput(err) {
			rejectWith(c, re)
			return
		}
		s.logger.WithError(err).Error("reconciliation run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal failure"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":               result.RunID,
		"results":              result.Results,
		"unpaid_invoice_count": result.UnpaidInvoiceCount,
	})
}
