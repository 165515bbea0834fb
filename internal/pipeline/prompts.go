package pipeline

// Prompt templates for the analysis agents. Each agent asks for a single
// JSON object; responses are still run through ExtractPayload because models
// routinely wrap JSON in prose or fences.

const scrapePromptTemplate = `Visit the following URL and extract its main textual content.

URL: %s

Return a single JSON object:
{
  "text": "<the main article or page text, cleaned of navigation and boilerplate>",
  "title": "<the page title if identifiable>"
}

If the page has no extractable main text, return {"text": "", "title": ""}.`

const textualPromptTemplate = `You are a textual analysis agent in a content-verification system.
Analyze the following content for factual framing.

CONTENT:
%s

Return a single JSON object:
{
  "summary": "<3-4 sentence neutral summary>",
  "sentiment": "positive" | "negative" | "neutral",
  "entities": ["<named entities mentioned>"],
  "keywords": ["<topical keywords>"]
}`

const emotionPromptTemplate = `You are an emotion analysis agent in a content-verification system.
Assess the emotional register and manipulation intent of the following content.

CONTENT:
%s

Return a single JSON object:
{
  "dominant_emotion": "<one word, e.g. fear, anger, hope>",
  "manipulation_level": "low" | "medium" | "high"
}`

const visualPromptTemplate = `You are a visual analysis agent in a content-verification system.
Inspect the attached image(s) for signs of manipulation, staging, or
misleading framing. Video submissions appear as evenly spaced frames in
playback order.

Return a single JSON object:
{
  "visual_insights": [
    {
      "description": "<what the image shows and anything suspicious>",
      "manipulation_flag": "low" | "medium" | "high"
    }
  ]
}

Produce one insight per attached image, in order.`

const sourcePromptTemplate = `You are a source intelligence agent in a content-verification system.
Evaluate the credibility of the publishing source.

DOMAIN: %s
URL: %s

Return a single JSON object:
{
  "trust_score": <integer 0-100, 0 = known disinformation outlet, 100 = highly reputable>,
  "source_validity": "<one-line verdict>",
  "source_validity_explanation": "<2-3 sentences of reasoning>",
  "evidence": [
    {"finding": "positive" | "negative" | "neutral", "note": "<specific finding>"}
  ]
}`

const synthesisPromptTemplate = `You are the final synthesis agent in a content-verification system.
Write a verification report in markdown based on the agent findings below.
Cover: what the content claims, how trustworthy it appears, emotional or
visual manipulation signals, and a bottom-line assessment for a general
reader. Be direct about uncertainty.

AGENT FINDINGS (JSON):
%s`
