package cmd

import (
	"bytes"
	"testing"

	"lending/domain/entities"
	"lending/domain/interfaces"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountID(t *testing.T) {
	id, err := parseAccountID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-3", "abc"} {
		_, err := parseAccountID(raw)
		assert.Error(t, err, raw)
	}
}

func TestPrintImportSummary(t *testing.T) {
	summary := &interfaces.ImportSummary{
		BatchID:   "batch-1",
		TotalRows: 3,
		Succeeded: 1,
		CreatedAccounts: []*entities.Account{
			{ID: 1},
		},
		Errors: []entities.RowError{
			{RowNumber: 2, Reason: "amount: not a number"},
			{RowNumber: 3, Reason: "transaction_date: is required"},
		},
		RebuildErrors: []interfaces.AccountError{
			{AccountID: 1, Reason: "store unavailable"},
		},
	}

	var out bytes.Buffer
	printImportSummary(&out, summary)

	assert.Equal(t,
		"batch batch-1: 3 rows, 1 applied, 2 failed, 1 new accounts, 0 deposits\n"+
			"  row 2: amount: not a number\n"+
			"  row 3: transaction_date: is required\n"+
			"  account 1 snapshots: store unavailable\n",
		out.String())
}

func TestPrintImportSummary_RerunAndAbort(t *testing.T) {
	summary := &interfaces.ImportSummary{
		BatchID:         "sheet-2024-01",
		TotalRows:       4,
		Succeeded:       1,
		AlreadyImported: 2,
		AbortReason:     "ledger store unavailable",
	}

	var out bytes.Buffer
	printImportSummary(&out, summary)

	assert.Equal(t,
		"batch sheet-2024-01: 4 rows, 1 applied, 0 failed, 0 new accounts, 0 deposits\n"+
			"  2 rows already imported\n"+
			"  aborted: ledger store unavailable\n",
		out.String())
}

func TestConfigureLogging(t *testing.T) {
	defer func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	}()

	ConfigureLogging("debug", "json")
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	_, isJSON := log.StandardLogger().Formatter.(*log.JSONFormatter)
	assert.True(t, isJSON)

	ConfigureLogging("loud", "")
	assert.Equal(t, log.InfoLevel, log.GetLevel())
	_, isText := log.StandardLogger().Formatter.(*log.TextFormatter)
	assert.True(t, isText)
}
