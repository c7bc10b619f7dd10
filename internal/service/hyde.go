package service

import (
	"fmt"
	"strings"
)

// hydePrompt asks the model to reformulate a query into three questions,
// each taking a different perspective on the topic.
const hydePrompt = `Given the following query:
%s

Generate three distinct and insightful questions that will produce comprehensive responses using these approaches:

Essence Question (A):
Create a question that explores the fundamental concepts, core principles, and theoretical foundations underlying the original query. This should reveal the "why" and deeper meaning.

Systems Question (B):
Formulate a question that examines relationships, interconnections, dependencies, and how different components work together within the domain of the original query. This should reveal the "how" and structural aspects.

Application Question (C):
Develop a question focused on practical implementation, real-world examples, use cases, challenges, and actionable insights directly related to the original query. This should reveal the "what" and practical applications.

Each question should:
- Be directly related to the original query
- Explore a different dimension of understanding
- Be answerable in detail
- Provide unique value and perspective

Format your response as exactly three numbered questions:
1. [Essence Question]
2. [Systems Question]
3. [Application Question]`

// responsePrompt wraps one reformulated question for answering.
const responsePrompt = `You are an expert AI assistant. Answer the following question comprehensively and accurately:

%s

Provide a detailed, informative response that addresses all aspects of the question. Be clear, concise, and helpful.`

func buildHydePrompt(query string) string {
	return fmt.Sprintf(hydePrompt, query)
}

func buildResponsePrompt(question string) string {
	return fmt.Sprintf(responsePrompt, question)
}

// parseHydeQuestions extracts exactly three questions from a model
// response. Numbered lines are preferred, long unnumbered lines fill
// the gaps, and generic variations pad any remainder.
func parseHydeQuestions(raw string) []string {
	var questions []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if q, ok := stripNumberPrefix(line); ok {
			if q != "" {
				questions = append(questions, q)
			}
			continue
		}

		if len(questions) < 3 && len(line) > 20 {
			questions = append(questions, line)
		}
	}

	for len(questions) < 3 {
		questions = append(questions,
			fmt.Sprintf("Variation %d: Please provide more details about this topic.", len(questions)+1))
	}
	return questions[:3]
}

// stripNumberPrefix removes a leading "1.", "2." or "3." marker.
func stripNumberPrefix(line string) (string, bool) {
	for i := 1; i <= 3; i++ {
		prefix := fmt.Sprintf("%d.", i)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return "", false
}

// fallbackQuestions covers the case where question generation itself
// fails; the pipeline still answers three perspectives on the query.
func fallbackQuestions(query string) []string {
	return []string{
		fmt.Sprintf("What are the fundamental concepts behind: %s?", query),
		fmt.Sprintf("How do the different components of '%s' work together?", query),
		fmt.Sprintf("What are practical applications and implementations of: %s?", query),
	}
}
