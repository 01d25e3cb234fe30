package app

import (
	"context"

	"company-quiz-service/internal/domain"
)

// QuizAnalytics is the rating history of one quiz.
type QuizAnalytics struct {
	Quiz    QuizSummary
	Results []domain.QuizResult
}

// UserAnalytics is the rating history of one user with the companies they
// belong to and the quizzes they have taken.
type UserAnalytics struct {
	User      domain.User
	Results   []domain.QuizResult
	Companies []domain.Company
	Quizzes   []QuizSummary
}

// CompanyAnalytics is the rating history inside one company. Members is nil
// when the history is narrowed to a single participant.
type CompanyAnalytics struct {
	Company domain.Company
	Results []domain.QuizResult
	Members []domain.User
	Quizzes []QuizSummary
}

// QuizzesAnalytics returns every quiz of every company with its completed
// results, oldest first.
func (s *QuizService) QuizzesAnalytics(ctx context.Context) ([]QuizAnalytics, error) {
	companies, err := s.directory.Companies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]QuizAnalytics, 0)
	for _, c := range companies {
		quizzes, err := s.quizzes.ListQuizzes(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		for _, q := range quizzes {
			results, err := s.completedHistory(ctx, domain.ResultFilter{QuizID: q.ID})
			if err != nil {
				return nil, err
			}
			out = append(out, QuizAnalytics{Quiz: summarize(q), Results: results})
		}
	}
	return out, nil
}

// UsersAnalytics returns UserAnalytics for every known user.
func (s *QuizService) UsersAnalytics(ctx context.Context) ([]UserAnalytics, error) {
	users, err := s.directory.Users(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserAnalytics, 0, len(users))
	for _, u := range users {
		a, err := s.userAnalytics(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// UserAnalytics returns the analytics of userID.
func (s *QuizService) UserAnalytics(ctx context.Context, userID int64) (UserAnalytics, error) {
	u, err := s.directory.User(ctx, userID)
	if err != nil {
		return UserAnalytics{}, err
	}
	return s.userAnalytics(ctx, u)
}

func (s *QuizService) userAnalytics(ctx context.Context, u domain.User) (UserAnalytics, error) {
	results, err := s.completedHistory(ctx, domain.ResultFilter{ParticipantID: u.ID})
	if err != nil {
		return UserAnalytics{}, err
	}
	companies, err := s.directory.MemberCompanies(ctx, u.ID)
	if err != nil {
		return UserAnalytics{}, err
	}
	if companies == nil {
		companies = []domain.Company{}
	}

	// Any attempt counts towards the taken quizzes, finished or not.
	attempts, err := s.results.ListResults(ctx, domain.ResultFilter{ParticipantID: u.ID})
	if err != nil {
		return UserAnalytics{}, err
	}
	refs := s.newRefResolver()
	seen := make(map[int64]bool)
	quizzes := make([]QuizSummary, 0)
	for _, r := range attempts {
		if r.QuizID == 0 || seen[r.QuizID] {
			continue
		}
		seen[r.QuizID] = true
		q, err := refs.quiz(ctx, r.QuizID)
		if err != nil {
			return UserAnalytics{}, err
		}
		if q != nil {
			quizzes = append(quizzes, *q)
		}
	}
	return UserAnalytics{User: u, Results: results, Companies: companies, Quizzes: quizzes}, nil
}

// CompanyAnalytics returns the analytics of companyID, optionally narrowed to
// one participant. Only owners and admins may read it.
func (s *QuizService) CompanyAnalytics(ctx context.Context, actorID, companyID, participantID int64) (CompanyAnalytics, error) {
	if err := s.requireManager(ctx, actorID, companyID); err != nil {
		return CompanyAnalytics{}, err
	}
	company, err := s.directory.Company(ctx, companyID)
	if err != nil {
		return CompanyAnalytics{}, err
	}
	results, err := s.completedHistory(ctx, domain.ResultFilter{CompanyID: companyID, ParticipantID: participantID})
	if err != nil {
		return CompanyAnalytics{}, err
	}

	var members []domain.User
	if participantID == 0 {
		ms, err := s.directory.Members(ctx, companyID)
		if err != nil {
			return CompanyAnalytics{}, err
		}
		refs := s.newRefResolver()
		members = make([]domain.User, 0, len(ms))
		for _, m := range ms {
			u, err := refs.user(ctx, m.UserID)
			if err != nil {
				return CompanyAnalytics{}, err
			}
			if u != nil {
				members = append(members, *u)
			}
		}
	}

	list, err := s.quizzes.ListQuizzes(ctx, companyID)
	if err != nil {
		return CompanyAnalytics{}, err
	}
	quizzes := make([]QuizSummary, 0, len(list))
	for _, q := range list {
		quizzes = append(quizzes, summarize(q))
	}
	return CompanyAnalytics{Company: company, Results: results, Members: members, Quizzes: quizzes}, nil
}

func (s *QuizService) completedHistory(ctx context.Context, f domain.ResultFilter) ([]domain.QuizResult, error) {
	f.Status = domain.StatusCompleted
	results, err := s.results.ListResults(ctx, f)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []domain.QuizResult{}
	}
	byUpdated(results)
	return results, nil
}
