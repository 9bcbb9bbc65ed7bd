// Package relevance decides whether a posting is an AI role.
package relevance

import (
	"regexp"
	"strings"
)

// NegativeKeywords mark titles that are almost never AI roles on their own.
var NegativeKeywords = []string{
	"sales representative", "sales manager", "sales executive", "account manager",
	"account executive", "customer service", "customer support", "call center",
	"warehouse", "retail", "cashier", "receptionist", "driver", "delivery",
	"administrative assistant", "nurse", "recruiter",
}

// CoreKeywords identify an AI role by themselves.
var CoreKeywords = []string{
	"ai engineer", "machine learning", "deep learning", "ml engineer", "nlp engineer",
	"data scientist", "computer vision", "neural network", "tensorflow", "pytorch",
	"artificial intelligence", "generative ai", "genai", "gen ai", "llm",
	"large language model", "transformer", "reinforcement learning", "ai research",
	"ai researcher", "ai scientist", "ml scientist", "natural language processing",
	"nlp", "ai/ml", "ml/ai", "ai developer", "ai architect", "ai specialist",
	"prompt engineer", "hugging face", "langchain", "keras", "scikit-learn",
}

// RelatedKeywords count only when they appear in both title and description.
var RelatedKeywords = []string{
	"ai sales", "ai product", "ai solutions", "ai consultant", "ai ethics",
	"ai governance", "ai trainer", "mlops", "conversational ai", "chatbot",
	"robotics", "rpa", "data annotation", "data labeling", "intelligent automation",
	"automation engineer", "autonomous", "speech recognition", "recommendation system",
}

var (
	negativeExpr = keywordExpr(NegativeKeywords)
	coreExpr     = keywordExpr(CoreKeywords)
	relatedExpr  = keywordExpr(RelatedKeywords)
)

// keywordExpr matches any keyword as a whole word, allowing a plural "s".
func keywordExpr(keywords []string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)s?\b`)
}

// IsAIRelated classifies a posting from its title and description.
func IsAIRelated(title, description string) bool {
	title = strings.ToLower(title)
	description = strings.ToLower(description)

	coreInTitle := coreExpr.MatchString(title)
	relatedInTitle := relatedExpr.MatchString(title)

	if negativeExpr.MatchString(title) && !coreInTitle && !relatedInTitle {
		return false
	}
	if coreInTitle {
		return true
	}
	if coreExpr.MatchString(description) {
		return true
	}
	return relatedInTitle && relatedExpr.MatchString(description)
}
