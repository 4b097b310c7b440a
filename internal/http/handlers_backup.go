package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"carpool/internal/backup"
	"carpool/internal/core"
	"carpool/internal/log"
)

// ImportResult summarizes the ledger after a backup was merged in.
type ImportResult struct {
	Travellers   int `json:"travellers"`
	Days         int `json:"days"`
	CashPayments int `json:"cashPayments"`
	OtherPending int `json:"otherPending"`
	CarExpenses  int `json:"carExpenses"`
	Incomes      int `json:"coTravellerIncomes"`
}

func importResult(snap core.Snapshot) ImportResult {
	return ImportResult{
		Travellers:   len(snap.Travellers),
		Days:         len(snap.DailyData),
		CashPayments: len(snap.CashPayments),
		OtherPending: len(snap.OtherPending),
		CarExpenses:  len(snap.CarExpenses),
		Incomes:      len(snap.CoTravellerIncomes),
	}
}

// handleExportBackup streams the committed ledger as a backup file.
func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	b := backup.New(s.ledger.GetPersistedState(), now)

	var buf bytes.Buffer
	if err := backup.Encode(&buf, b); err != nil {
		writeError(w, r, fmt.Errorf("encode backup: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, backup.FileName(now)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleImportBackup validates the uploaded backup and merges it into the
// ledger. A rejected backup leaves the ledger untouched.
func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, badRequest("backup too large"))
			return
		}
		writeError(w, r, badRequest("read backup: "+err.Error()))
		return
	}
	b, err := backup.Parse(data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	merged := s.ledger.MergeRestoreFromBackup(b.LedgerState)

	res := importResult(merged)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Backup imported",
		"backup_timestamp", b.Timestamp,
		log.FieldRecordCount, res.CashPayments+res.OtherPending+res.CarExpenses+res.Incomes)
	writeJSON(w, http.StatusOK, res)
}
