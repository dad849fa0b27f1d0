package security

import (
	"fmt"
	"strings"

	"github.com/newsforge/accountguard/internal/models"
)

// normalizeAnswer lowercases and trims an answer before hashing.
// Answers are matched case-insensitively.
func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashSecurityAnswer hashes a normalized security question answer.
func HashSecurityAnswer(answer string) (string, error) {
	normalized := normalizeAnswer(answer)
	if normalized == "" {
		return "", fmt.Errorf("security: empty answer")
	}
	return HashPassword(normalized)
}

// VerifySecurityAnswer matches an answer against a stored question pair.
func VerifySecurityAnswer(questions models.QuestionList, question, answer string) bool {
	normalized := normalizeAnswer(answer)
	if normalized == "" {
		return false
	}
	for _, pair := range questions {
		if pair.Question != question {
			continue
		}
		return VerifyPassword(pair.AnswerHash, normalized)
	}
	return false
}
