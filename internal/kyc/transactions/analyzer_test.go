package transactions

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onekyc/internal/kyc/models"
)

func statement(lines ...string) string {
	return "ACME BANK\nStatement of account\n" + strings.Join(lines, "\n")
}

func TestAnalyze_RapidAndLarge(t *testing.T) {
	var lines []string
	for i := range 12 {
		lines = append(lines, fmt.Sprintf("05/03/2024 | UPI transfer %d | %d.25", i, 1200+i*37))
	}
	lines = append(lines, "06/03/2024 | NEFT property payment | 150,000.50")

	res := Analyze(statement(lines...), models.DocBankStatement)

	assert.Equal(t, 13, res.TransactionCount)
	assert.Equal(t, 55, res.RiskScore)
	assert.True(t, res.IsSuspicious)
	require.Len(t, res.Indicators, 2)
	assert.Contains(t, res.Indicators[0], "rapid transactions: 12")
	assert.Contains(t, res.Indicators[1], "large transactions: 1")
}

func TestAnalyze_NoTransactions(t *testing.T) {
	res := Analyze("this is a scanned picture of a cat", models.DocBankStatement)

	assert.Equal(t, 50, res.RiskScore)
	assert.True(t, res.IsSuspicious)
	assert.Equal(t, []string{"no transactions found"}, res.Indicators)
}

func TestAnalyze_IndividualChecks(t *testing.T) {
	cases := []struct {
		name       string
		lines      []string
		score      int
		suspicious bool
	}{
		{
			name:  "clean statement",
			lines: []string{"01/02/2024 grocery 432.10", "02/02/2024 fuel 2,310.45"},
			score: 0,
		},
		{
			name:  "round amounts",
			lines: []string{"01/02/2024 transfer 25000.00", "02/02/2024 fuel 310.45"},
			score: 15,
		},
		{
			name:       "overdraft wording",
			lines:      []string{"01/02/2024 fee 310.45", "Account is in overdraft"},
			score:      40,
			suspicious: true,
		},
		{
			name:       "negative balance",
			lines:      []string{"01/02/2024 fee 310.45 Balance: -1,204.10"},
			score:      40,
			suspicious: true,
		},
		{
			name:  "positive balance is fine",
			lines: []string{"01/02/2024 fee 310.45 Balance: 1,204.10"},
			score: 0,
		},
		{
			name:       "duplicates",
			lines:      []string{"01/02/2024 rent 999.99", "01/02/2024 rent again 999.99"},
			score:      35,
			suspicious: false,
		},
		{
			name: "cash withdrawals",
			lines: []string{
				"01/02/2024 ATM 101.10", "02/02/2024 ATM 102.10", "03/02/2024 CASH 103.10",
				"04/02/2024 WITHDRAWAL 104.10", "05/02/2024 ATM 105.10", "06/02/2024 ATM 106.10",
			},
			score: 20,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Analyze(statement(tc.lines...), models.DocBankStatement)
			assert.Equal(t, tc.score, res.RiskScore, "indicators: %v", res.Indicators)
			assert.Equal(t, tc.suspicious, res.IsSuspicious)
		})
	}
}

func TestAnalyze_ScoreCapped(t *testing.T) {
	var lines []string
	for range 12 {
		lines = append(lines, "01/02/2024 ATM WITHDRAWAL 250000.00")
	}
	lines = append(lines, "overdraft")

	res := Analyze(statement(lines...), models.DocBankStatement)
	assert.Equal(t, 100, res.RiskScore)
	assert.True(t, res.IsSuspicious)
}

func TestAnalyze_UtilityBill(t *testing.T) {
	res := Analyze("CITY POWER\nConsumer 8812\nAmount due: ₹ 1,245.50\nTotal: 9999.00", models.DocUtilityBill)
	assert.Equal(t, 1, res.TransactionCount, "only the first amount due figure counts")
	assert.Equal(t, 15, res.RiskScore, "round amount pattern still applies to the full text")

	res = Analyze("CITY POWER\nthank you", models.DocUtilityBill)
	assert.Equal(t, 0, res.TransactionCount)
	assert.Equal(t, 50, res.RiskScore)
}

func TestAnalyze_DateDigitsAreNotAmounts(t *testing.T) {
	res := Analyze(statement("31/12/2024 coffee 4.50"), models.DocBankStatement)
	require.Equal(t, 1, res.TransactionCount)
	assert.Zero(t, res.RiskScore)
}
