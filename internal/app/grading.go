package app

import "company-quiz-service/internal/domain"

// Grade scores a submission against the canonical quiz. Questions and answers
// are matched by position; any structural difference rejects the attempt.
//
// Each answer earns +1 when the participant's mark equals the answer key and
// -1 otherwise. A question with a positive sum adds sum/len(answers) to the
// score; zero or negative sums add nothing.
func Grade(quiz domain.Quiz, sub domain.Submission) (domain.Score, error) {
	if len(sub.Questions) != len(quiz.Questions) {
		return domain.Score{}, &domain.MismatchError{Level: "question", Position: min(len(sub.Questions), len(quiz.Questions))}
	}

	var correct float64
	for i, question := range quiz.Questions {
		submitted := sub.Questions[i]
		if len(submitted.Answers) != len(question.Answers) || submitted.Text != question.Text {
			return domain.Score{}, &domain.MismatchError{Level: "question", Position: i}
		}

		sum := 0
		for j, answer := range question.Answers {
			if submitted.Answers[j].Text != answer.Text {
				return domain.Score{}, &domain.MismatchError{Level: "answer", Position: i}
			}
			if submitted.Answers[j].IsRight == answer.IsRight {
				sum++
			} else {
				sum--
			}
		}
		if sum > 0 {
			correct += float64(sum) / float64(len(question.Answers))
		}
	}

	return domain.Score{CorrectAnswers: correct, TotalQuestions: len(quiz.Questions)}, nil
}
