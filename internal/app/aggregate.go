package app

import (
	"math/big"
	"time"

	"company-quiz-service/internal/domain"
	"github.com/shopspring/decimal"
)

// CompleteAttempt grades sub and returns rec moved to COMPLETED with its
// collectors chained onto the previous completed results. priorGlobal is the
// participant's latest completed result in any company, priorCompany the
// latest one in rec's company; either may be nil. rec itself is not modified.
func CompleteAttempt(rec domain.QuizResult, quiz domain.Quiz, sub domain.Submission, priorGlobal, priorCompany *domain.QuizResult, now time.Time) (domain.QuizResult, error) {
	if rec.Status != domain.StatusStarted {
		return domain.QuizResult{}, domain.ErrAlreadyCompleted
	}

	score, err := Grade(quiz, sub)
	if err != nil {
		return domain.QuizResult{}, err
	}

	out := rec
	out.CorrectAnswers = score.CorrectAnswers
	out.TotalQuestions = score.TotalQuestions
	out.QuizTime = now.Sub(rec.CreatedAt)

	out.CorrectAnswersCollector = score.CorrectAnswers
	out.TotalQuestionsCollector = score.TotalQuestions
	if priorGlobal != nil {
		out.CorrectAnswersCollector += priorGlobal.CorrectAnswersCollector
		out.TotalQuestionsCollector += priorGlobal.TotalQuestionsCollector
	}

	out.CorrectCompanyAnswersCollector = score.CorrectAnswers
	out.TotalCompanyQuestionsCollector = score.TotalQuestions
	if priorCompany != nil {
		out.CorrectCompanyAnswersCollector += priorCompany.CorrectCompanyAnswersCollector
		out.TotalCompanyQuestionsCollector += priorCompany.TotalCompanyQuestionsCollector
	}

	out.UserRating = Percentage(out.CorrectAnswersCollector, out.TotalQuestionsCollector, rec.UserRating)
	out.CompanyAverageScore = Percentage(out.CorrectCompanyAnswersCollector, out.TotalCompanyQuestionsCollector, rec.CompanyAverageScore)

	out.Status = domain.StatusCompleted
	out.UpdatedAt = now
	return out, nil
}

// Percentage returns correct/total*100 rounded half-even to two places, or
// fallback when total is not positive. Rounding works on the exact binary
// value of the quotient, so 2.675 rounds to 2.67.
func Percentage(correct float64, total int, fallback decimal.Decimal) decimal.Decimal {
	if total <= 0 {
		return fallback
	}
	return exactDecimal(correct / float64(total) * 100).RoundBank(2)
}

// exactDecimal expands f to every decimal digit of its binary value.
// 1074 fractional digits cover the smallest subnormal float64.
func exactDecimal(f float64) decimal.Decimal {
	return decimal.RequireFromString(new(big.Float).SetFloat64(f).Text('f', 1074))
}
