package matching

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/models"
	"gorm.io/gorm"
)

// MatchTarget is the extracted receipt data a candidate transaction is
// scored against.
type MatchTarget struct {
	Amount float64
	Date   time.Time
	Vendor string
}

// Config holds the matcher's tunables. The qualify threshold is a
// deliberate precision/recall tradeoff: one strong vendor keyword plus
// weak amount evidence should qualify, a pure amount+date coincidence
// should not slip through on its own.
type Config struct {
	DateWindowDays     int
	BroadenWindowDays  int
	AmountTolerancePct float64
	AmountToleranceMin float64
	QualifyThreshold   float64
	MinCandidates      int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		DateWindowDays:     3,
		BroadenWindowDays:  30,
		AmountTolerancePct: 0.01,
		AmountToleranceMin: 0.50,
		QualifyThreshold:   40,
		MinCandidates:      3,
	}
}

// Confidence labels for a score.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ConfidenceLabel maps a score to its label.
func ConfidenceLabel(score float64) string {
	switch {
	case score >= 70:
		return ConfidenceHigh
	case score >= 40:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

var (
	reSlashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)
	reISODate   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reWord      = regexp.MustCompile(`[a-z0-9]+`)
)

// ParseFlexibleDate accepts DD/MM/YY, DD/MM/YYYY and YYYY-MM-DD. An
// ISO-like string whose month component exceeds 12 has its day and
// month swapped. When both slash components are <=12 the French
// day-first convention is assumed; that ambiguity is inherent to the
// input and deliberately not "fixed". The result is anchored to midday
// UTC so timezone offsets cannot shift the day.
func ParseFlexibleDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)

	if m := reSlashDate.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if month > 12 && day <= 12 {
			day, month = month, day
		}
		return makeDate(year, month, day)
	}

	if m := reISODate.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month > 12 && day <= 12 {
			day, month = month, day
		}
		return makeDate(year, month, day)
	}

	return time.Time{}, false
}

func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC), true
}

// ParseFlexibleDateOrNow falls back to the current time on unparseable
// input, logging the fallback instead of failing the match request.
func ParseFlexibleDateOrNow(s string) time.Time {
	if t, ok := ParseFlexibleDate(s); ok {
		return t
	}
	slog.Warn("Unparseable match date, falling back to now", "date", s)
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.UTC)
}

// normalizeVendor lowercases and collapses whitespace for comparison.
func normalizeVendor(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// significantWords returns the comparison words of a vendor name:
// length >= 4, lowercased.
func significantWords(s string) []string {
	var words []string
	for _, w := range reWord.FindAllString(strings.ToLower(s), -1) {
		if len(w) >= 4 {
			words = append(words, w)
		}
	}
	return words
}

// AmountTolerance is the absolute window around the target amount:
// max(1% of the amount, 0.50 currency units).
func AmountTolerance(cfg Config, amount float64) float64 {
	tolerance := math.Abs(amount) * cfg.AmountTolerancePct
	if tolerance < cfg.AmountToleranceMin {
		tolerance = cfg.AmountToleranceMin
	}
	return tolerance
}

// Score is the pure scoring function: amount closeness up to 40 points,
// date closeness up to 20, vendor text up to 40. Bank amounts are
// debits, so the candidate is compared against the negated target.
func Score(target MatchTarget, candidate models.BankTransaction) float64 {
	score := 0.0

	amountDiff := math.Abs(candidate.Amount + target.Amount)
	score += math.Max(0, 40-amountDiff*20)

	daysDiff := math.Round(math.Abs(candidate.ProcessedAt.Sub(target.Date).Hours()) / 24)
	score += math.Max(0, 20-daysDiff*5)

	vendor := normalizeVendor(target.Vendor)
	description := normalizeVendor(candidate.Description)
	if vendor != "" && description != "" {
		if strings.Contains(description, vendor) {
			score += 40
		} else {
			vendorScore := 0.0
			for _, word := range significantWords(vendor) {
				if strings.Contains(description, word) {
					vendorScore += 15
				}
			}
			score += math.Min(40, vendorScore)
		}
	}

	return score
}

// ScoredTransaction is one candidate with its score.
type ScoredTransaction struct {
	models.BankTransaction
	Score      float64 `json:"score"`
	Confidence string  `json:"confidence"`
}

// SearchCriteria echoes the resolved windows back to the caller.
type SearchCriteria struct {
	Amount          float64   `json:"amount"`
	AmountTolerance float64   `json:"amountTolerance"`
	DateFrom        time.Time `json:"dateFrom"`
	DateTo          time.Time `json:"dateTo"`
	Vendor          string    `json:"vendor"`
	Broadened       bool      `json:"broadened"`
}

// MatchResult is the full response of one match request.
type MatchResult struct {
	BestMatch      *ScoredTransaction  `json:"bestMatch"`
	AllMatches     []ScoredTransaction `json:"allMatches"`
	SearchCriteria SearchCriteria      `json:"searchCriteria"`
}

// Matcher finds and ranks unreconciled bank transactions for a target.
type Matcher struct {
	db  *gorm.DB
	cfg Config
}

func NewMatcher(db *gorm.DB, cfg Config) *Matcher {
	return &Matcher{db: db, cfg: cfg}
}

// unreconciledScope keeps only debit transactions with no linked
// expense and no attached receipt file.
func unreconciledScope(workspaceID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("workspace_id = ?", workspaceID).
			Where("status = ?", models.StatusUnmatched).
			Where("linked_expense_id IS NULL").
			Where("(receipt_file_url IS NULL OR receipt_file_url = '')").
			Where("amount < 0")
	}
}

// FindMatches runs the query ladder: amount+date window first, then a
// vendor-keyword broadening without the date constraint, then a 30-day
// window without the vendor. Amount filtering stays at query level so
// out-of-tolerance candidates never reach the scorer.
func (m *Matcher) FindMatches(workspaceID uint, target MatchTarget) (*MatchResult, error) {
	if target.Amount <= 0 {
		return nil, fmt.Errorf("match target amount must be positive, got %v", target.Amount)
	}

	tolerance := AmountTolerance(m.cfg, target.Amount)
	minAmount := -(target.Amount + tolerance)
	maxAmount := -(target.Amount - tolerance)
	dateFrom := target.Date.AddDate(0, 0, -m.cfg.DateWindowDays)
	dateTo := target.Date.AddDate(0, 0, m.cfg.DateWindowDays)

	criteria := SearchCriteria{
		Amount:          target.Amount,
		AmountTolerance: tolerance,
		DateFrom:        dateFrom,
		DateTo:          dateTo,
		Vendor:          target.Vendor,
	}

	var candidates []models.BankTransaction
	err := m.db.Scopes(unreconciledScope(workspaceID)).
		Where("amount BETWEEN ? AND ?", minAmount, maxAmount).
		Where("processed_at BETWEEN ? AND ?", dateFrom, dateTo).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	if len(candidates) < m.cfg.MinCandidates && target.Vendor != "" {
		criteria.Broadened = true
		words := significantWords(target.Vendor)
		if len(words) > 0 {
			query := m.db.Scopes(unreconciledScope(workspaceID)).
				Where("amount BETWEEN ? AND ?", minAmount, maxAmount)
			var conditions []string
			var args []interface{}
			for _, word := range words {
				conditions = append(conditions, "LOWER(description) LIKE ?")
				args = append(args, "%"+word+"%")
			}
			query = query.Where(strings.Join(conditions, " OR "), args...)

			var byVendor []models.BankTransaction
			if err := query.Find(&byVendor).Error; err != nil {
				return nil, err
			}
			candidates = mergeCandidates(candidates, byVendor)
		}
	}

	if len(candidates) == 0 {
		criteria.Broadened = true
		wideFrom := target.Date.AddDate(0, 0, -m.cfg.BroadenWindowDays)
		wideTo := target.Date.AddDate(0, 0, m.cfg.BroadenWindowDays)
		err := m.db.Scopes(unreconciledScope(workspaceID)).
			Where("amount BETWEEN ? AND ?", minAmount, maxAmount).
			Where("processed_at BETWEEN ? AND ?", wideFrom, wideTo).
			Find(&candidates).Error
		if err != nil {
			return nil, err
		}
	}

	return m.rank(target, candidates, criteria), nil
}

// rank scores, sorts and labels the candidates.
func (m *Matcher) rank(target MatchTarget, candidates []models.BankTransaction, criteria SearchCriteria) *MatchResult {
	scored := make([]ScoredTransaction, 0, len(candidates))
	for _, candidate := range candidates {
		s := Score(target, candidate)
		scored = append(scored, ScoredTransaction{
			BankTransaction: candidate,
			Score:           s,
			Confidence:      ConfidenceLabel(s),
		})
	}

	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].Score > scored[j-1].Score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}

	result := &MatchResult{AllMatches: scored, SearchCriteria: criteria}
	if len(scored) > 0 && scored[0].Score >= m.cfg.QualifyThreshold {
		best := scored[0]
		result.BestMatch = &best
	}
	return result
}

func mergeCandidates(a, b []models.BankTransaction) []models.BankTransaction {
	seen := make(map[uint]bool, len(a))
	for _, tx := range a {
		seen[tx.ID] = true
	}
	for _, tx := range b {
		if !seen[tx.ID] {
			a = append(a, tx)
			seen[tx.ID] = true
		}
	}
	return a
}
