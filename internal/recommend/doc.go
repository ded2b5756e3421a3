// Package recommend turns an audit summary into improvement advice.
//
// Two Recommenders are provided. OpenAI asks an OpenAI-compatible
// chat-completions endpoint and is guarded by a circuit breaker and a rate
// limiter. RuleBased derives deterministic advice from the summary's most
// frequent issues and needs no network. Generate runs a primary
// recommender and falls back to RuleBased when it fails.
package recommend
