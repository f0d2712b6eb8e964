// Package transactions scores transactional documents (bank statements,
// utility bills) for fraud indicators using fixed-point heuristics.
package transactions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"onekyc/internal/kyc/models"
)

// Points per triggered check.
const (
	pointsRapid         = 30
	pointsLarge         = 25
	pointsRound         = 15
	pointsCash          = 20
	pointsNegative      = 40
	pointsDuplicate     = 35
	pointsNoTransaction = 50

	rapidPerDate   = 10
	largeAmount    = 100_000
	cashLineLimit  = 5
	maxScore       = 100
	SuspiciousFrom = 40
)

var (
	datePattern    = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	amountPattern  = regexp.MustCompile(`[+-]?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?`)
	amountDue      = regexp.MustCompile(`(?i)(?:amount|total|due|payable)[:\s]+(?:₹|rs\.?|inr)?\s*((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?)`)
	roundAmount    = regexp.MustCompile(`\b\d{4,6}\.00\b`)
	negativeAmount = regexp.MustCompile(`(?i)balance[:\s]*(?:₹|rs\.?|inr)?\s*-\s*\d`)
	negativeWords  = regexp.MustCompile(`(?i)\b(?:overdraft|overdrawn|negative balance|deficit)\b`)
	cashWords      = []string{"ATM", "WITHDRAWAL", "WITHDRAW", "CASH"}
)

type transaction struct {
	date   string
	amount float64
	line   string
}

// Analyze scores extracted document text. It never fails: text it can not
// parse yields zero transactions, which is itself suspicious.
func Analyze(text string, docType models.DocumentType) models.TransactionAnalysis {
	txns := extract(text, docType)
	res := models.TransactionAnalysis{TransactionCount: len(txns), Indicators: []string{}}

	if len(txns) == 0 {
		res.RiskScore = pointsNoTransaction
		res.Indicators = append(res.Indicators, "no transactions found")
		res.IsSuspicious = res.RiskScore >= SuspiciousFrom
		return res
	}

	score := 0
	add := func(points int, indicator string) {
		score += points
		res.Indicators = append(res.Indicators, indicator)
	}

	if n := maxPerDate(txns); n > rapidPerDate {
		add(pointsRapid, fmt.Sprintf("rapid transactions: %d on one date", n))
	}
	if n := countLarge(txns); n > 0 {
		add(pointsLarge, fmt.Sprintf("large transactions: %d above %d", n, largeAmount))
	}
	if n := len(roundAmount.FindAllString(text, -1)); n > 0 {
		add(pointsRound, fmt.Sprintf("round amounts: %d", n))
	}
	if n := countCash(txns); n > cashLineLimit {
		add(pointsCash, fmt.Sprintf("frequent cash withdrawals: %d", n))
	}
	if negativeAmount.MatchString(text) || negativeWords.MatchString(text) {
		add(pointsNegative, "negative balance or overdraft")
	}
	if n := countDuplicates(txns); n > 0 {
		add(pointsDuplicate, fmt.Sprintf("duplicate transactions: %d", n))
	}

	res.RiskScore = min(score, maxScore)
	res.IsSuspicious = res.RiskScore >= SuspiciousFrom
	return res
}

func extract(text string, docType models.DocumentType) []transaction {
	switch {
	case docType == models.DocBankStatement:
		return statementLines(text)
	case docType == models.DocUtilityBill:
		return amountDueFigure(text)
	case strings.Contains(string(docType), "BANK"), strings.Contains(string(docType), "STATEMENT"):
		return statementLines(text)
	case strings.Contains(string(docType), "UTILITY"), strings.Contains(string(docType), "BILL"):
		return amountDueFigure(text)
	}
	return nil
}

// statementLines reads one transaction per line that carries a date and an
// amount. The date is cut out before amounts are read so its digits never
// count as money; the line's amount is its largest absolute figure.
func statementLines(text string) []transaction {
	var out []transaction
	for _, line := range strings.Split(text, "\n") {
		date := datePattern.FindString(line)
		if date == "" {
			continue
		}
		rest := datePattern.ReplaceAllString(line, " ")
		best, found := 0.0, false
		for _, raw := range amountPattern.FindAllString(rest, -1) {
			v, ok := parseAmount(raw)
			if !ok {
				continue
			}
			found = true
			best = max(best, v)
		}
		if found {
			out = append(out, transaction{date: date, amount: best, line: line})
		}
	}
	return out
}

// amountDueFigure reads the first amount due figure on a bill.
func amountDueFigure(text string) []transaction {
	m := amountDue.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, ok := parseAmount(m[1])
	if !ok {
		return nil
	}
	return []transaction{{amount: v, line: m[0]}}
}

func parseAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if v < 0 {
		v = -v
	}
	return v, true
}

func maxPerDate(txns []transaction) int {
	counts := map[string]int{}
	best := 0
	for _, t := range txns {
		if t.date == "" {
			continue
		}
		counts[t.date]++
		best = max(best, counts[t.date])
	}
	return best
}

func countLarge(txns []transaction) int {
	n := 0
	for _, t := range txns {
		if t.amount > largeAmount {
			n++
		}
	}
	return n
}

func countCash(txns []transaction) int {
	n := 0
	for _, t := range txns {
		upper := strings.ToUpper(t.line)
		for _, w := range cashWords {
			if strings.Contains(upper, w) {
				n++
				break
			}
		}
	}
	return n
}

// countDuplicates counts entries repeating an earlier (amount, date) pair.
func countDuplicates(txns []transaction) int {
	type key struct {
		amount float64
		date   string
	}
	seen := map[key]bool{}
	n := 0
	for _, t := range txns {
		k := key{t.amount, t.date}
		if seen[k] {
			n++
			continue
		}
		seen[k] = true
	}
	return n
}
