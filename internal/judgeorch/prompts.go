package judgeorch

import "fmt"

const similaritySystemPrompt = "You compare two answers to the same question and score how closely " +
	"the second matches the quality and correctness of the first. Respond with a JSON object " +
	`containing "score" (0-1 or 1-100), "bestanswer" (one of A, B, AB), and "reason".`

const bestAnswerSystemPrompt = "You judge which of two answers to the same question is the better " +
	`answer on its own merits, independent of the other. Respond with a JSON object containing ` +
	`"bestanswer" (one of A, B, AB) and "reason". Do not include a score.`

func similarityUserPrompt(question, baseAnswer, variantAnswer string) string {
	return fmt.Sprintf("Question:\n%s\n\nAnswer A (base):\n%s\n\nAnswer B:\n%s", question, baseAnswer, variantAnswer)
}

func bestAnswerUserPrompt(question, baseAnswer, variantAnswer string) string {
	return fmt.Sprintf("Question:\n%s\n\nAnswer A:\n%s\n\nAnswer B:\n%s", question, baseAnswer, variantAnswer)
}
