package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"company-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultAnswerTTL is how long a participant's answers stay readable after completion.
const DefaultAnswerTTL = 48 * time.Hour

// AnswerCache keeps each completed attempt's per-question answers in Redis.
// Keys look like user_quiz_result_{resultID}_{questionID}; values map an
// answer text to whether the participant marked it the same way as the key.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnswerCache(client *redis.Client, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = DefaultAnswerTTL
	}
	return &AnswerCache{client: client, ttl: ttl}
}

// RecordAnswers writes one key per question in a single pipeline.
func (c *AnswerCache) RecordAnswers(ctx context.Context, result domain.QuizResult, quiz domain.Quiz, sub domain.Submission) error {
	pipe := c.client.Pipeline()
	for i, q := range quiz.Questions {
		if i >= len(sub.Questions) {
			break
		}
		marks := make(map[string]bool, len(q.Answers))
		for j, a := range q.Answers {
			if j < len(sub.Questions[i].Answers) {
				marks[a.Text] = sub.Questions[i].Answers[j].IsRight == a.IsRight
			}
		}
		raw, err := json.Marshal(marks)
		if err != nil {
			return err
		}
		pipe.Set(ctx, answerKey(result.ID, q.ID), raw, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record answers for result %d: %w", result.ID, err)
	}
	return nil
}

// Answers reads back one question of a result. A missing key yields ok=false.
func (c *AnswerCache) Answers(ctx context.Context, resultID, questionID int64) (map[string]bool, bool, error) {
	raw, err := c.client.Get(ctx, answerKey(resultID, questionID)).Bytes()
	if isMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	marks := make(map[string]bool)
	if err := json.Unmarshal(raw, &marks); err != nil {
		return nil, false, err
	}
	return marks, true, nil
}

func answerKey(resultID, questionID int64) string {
	return fmt.Sprintf("user_quiz_result_%d_%d", resultID, questionID)
}
