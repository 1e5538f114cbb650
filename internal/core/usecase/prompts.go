package usecase

import (
	"fmt"
	"strings"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

// Prompts use the granite instruct chat template; the generation collaborator
// is expected to return bare text with no surrounding prose.

const classifierPromptTemplate = `<|start_of_role|>system<|end_of_role|>You are a classifier for the Valley Air chatbot. Your job is to classify the user's query as either "air_quality" or "general".

Instructions:
- Output ONLY one of these two labels: air_quality or general.
- Output the label as the first line, with no explanation, no extra text, and no formatting.
- If the query asks about AQI, air quality, air pollution, PM2.5, PM10, ozone, NO2, SO2, CO, smoke, wildfire smoke, burn days, air quality advisories, or pollutant concentrations, output air_quality.
- If the query is about Valley Air rules, grants, permits, enforcement, regulations, board meetings, sponsorships, rulemaking, appeals, inspections, or any other topic not directly about current air quality or pollutant levels, output general.
- If the query is ambiguous, output general.
<|end_of_text|>
<|start_of_role|>user<|end_of_role|>Query: %s<|end_of_text|>
<|start_of_role|>assistant<|end_of_role|>
`

func buildClassifierPrompt(query string) string {
	return fmt.Sprintf(classifierPromptTemplate, query)
}

const expansionPromptTemplate = `<|start_of_role|>system<|end_of_role|>You are an expert search assistant for an air quality and public services knowledge base, specializing in air quality, grants, permits, and Valley Air services. Your task is to rewrite user queries for semantic search and generate effective BM25-style keywords to improve document retrieval.

Instructions:
1. Query rewriting: generate three distinct rewritten queries that capture different aspects or intents of the user's query. Each rewrite should be clear, concise (10-20 words), and optimized for semantic search, avoiding verbatim repetition of the original query.
2. Keyword generation: produce 5-7 BM25-style keywords or short phrases (1-3 words each) that are highly relevant to the query's intent. Exclude stop words, punctuation, and overly generic terms.
3. Output format: return a JSON object with two keys: "rewrites" (list of 3 rewritten queries) and "keywords" (list of 5-7 keywords/phrases). Do not include explanations, comments, or extra formatting beyond the JSON output.

Example:
User Query: "What grants does Valley Air provide?"
Output:
{
  "rewrites": [
    "Available grants from Valley Air District",
    "Financial assistance programs at Valley Air",
    "Funding opportunities for businesses and residents from Valley Air"
  ],
  "keywords": [
    "Valley Air grants",
    "financial assistance",
    "funding programs",
    "incentives",
    "business grants",
    "emission reduction funding"
  ]
}
<|end_of_text|>
<|start_of_role|>user<|end_of_role|>%s<|end_of_text|>
<|start_of_role|>assistant<|end_of_role|>
`

func buildExpansionPrompt(query string) string {
	return fmt.Sprintf(expansionPromptTemplate, query)
}

const synthesisPromptTemplate = `<|start_of_role|>system<|end_of_role|>You are an AI assistant for the San Joaquin Valley Air Pollution Control District (Valley Air), dedicated to improving air quality in California's Central Valley. Your goal is to provide accurate, concise, and helpful answers based on valleyair.org content and the provided context.

Instructions:
1. Use the provided context from valleyair.org and any real-time air quality data to answer the user's question in 1-2 sentences.
2. Adopt a friendly, professional tone, explaining technical terms (e.g., AQI, PM2.5) in simple language.
3. If the question seeks details, include a short bulleted list of specific points.
4. Suggest a follow-up action (e.g., visit valleyair.org/grants, call 559-230-5800).
5. If context is insufficient, state: "I don't have enough details to answer fully. Visit valleyair.org or call 559-230-5800."
6. For off-topic queries, redirect politely.
7. Output only the answer text, excluding structural markers or tokens.
<|end_of_text|>
<|start_of_role|>user<|end_of_role|>Context:
%s

User question: %s<|end_of_text|>
<|start_of_role|>assistant<|end_of_role|>
`

func buildSynthesisPrompt(contextText, question string) string {
	return fmt.Sprintf(synthesisPromptTemplate, contextText, question)
}

const locationPromptTemplate = `<|start_of_role|>system<|end_of_role|>You are a location extractor for the Valley Air chatbot. Given a user query, extract the city, county, or zip code mentioned. Output a single JSON object with keys 'city', 'county', and 'zip'. If not present, leave the value as an empty string. Output ONLY the JSON object, with NO Markdown formatting, NO code blocks, NO explanation, and NO examples.<|end_of_text|>
<|start_of_role|>user<|end_of_role|>Query: %s<|end_of_text|>
<|start_of_role|>assistant<|end_of_role|>
`

func buildLocationPrompt(query string) string {
	return fmt.Sprintf(locationPromptTemplate, query)
}

const measurementPromptTemplate = `<|start_of_role|>system<|end_of_role|>You are an air quality assistant for the Valley Air chatbot. Summarize the following air quality data in a clear, user-friendly way for residents of California's Central Valley. Explain technical terms simply. Output only the answer, with no extra text or formatting.<|end_of_text|>
<|start_of_role|>user<|end_of_role|>Location: %s
AQI: %d (%s)
PM2.5: %s µg/m³
Ozone: %s ppb
Other pollutants: %s<|end_of_text|>
<|start_of_role|>assistant<|end_of_role|>
`

func buildMeasurementPrompt(location string, summary *domain.AirQualitySummary) string {
	other := strings.Join([]string{
		"NO2: " + formatReading(summary.NO2) + " ppb",
		"SO2: " + formatReading(summary.SO2) + " ppb",
		"CO: " + formatReading(summary.CO) + " ppm",
	}, ", ")
	return fmt.Sprintf(measurementPromptTemplate,
		location,
		summary.AQI,
		summary.AQICategory,
		formatReading(summary.PM25),
		formatReading(summary.Ozone),
		other,
	)
}

func formatReading(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", *v), "0"), ".")
}
