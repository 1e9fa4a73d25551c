package utils

// Rough token estimation used to keep prompts inside a model's context budget.
// 1 token ~= 4 characters is close enough for English tabular summaries.

// CountTokens estimates the number of tokens in the given text.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit naively truncates text to roughly fit within a token limit.
// A non-positive limit disables truncation.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[:charLimit])
}
