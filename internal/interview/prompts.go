package interview

import (
	"fmt"
	"strings"
)

const genericQuestionPrompt = "Could you tell me a bit more about that?"

const closingPhrase = "anything else about"

const defaultGreeting = "Hi %s! I'd love to understand your relationship with skincare. Tell me, is skincare something you think about a lot, or is it more just routine for you?"

// closingMessage is appended when the interview completes without the model
// having asked its own closing question.
func closingMessage(topic string) string {
	return fmt.Sprintf("This has been really insightful. Is there anything else about %s that feels important for me to understand?", topic)
}

// openingMessage picks a greeting by questionnaire category.
func openingMessage(name string, q *Questionnaire) string {
	if q == nil {
		return fmt.Sprintf(defaultGreeting, name)
	}
	category := q.Category
	if category == "" {
		category = "general"
	}
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "life") || strings.Contains(c, "general"):
		return fmt.Sprintf("Hi %s! I'd love to get to know you better. Tell me, what does a typical day look like for you?", name)
	case strings.Contains(c, "skincare") || strings.Contains(c, "beauty"):
		return fmt.Sprintf("Hi %s! I'm curious about your relationship with skincare. Is it something you think about a lot, or more just routine for you?", name)
	case strings.Contains(c, "moisturizer"):
		return fmt.Sprintf("Hi %s! Let's talk about moisturizers. What role do they play in your skincare routine?", name)
	case strings.Contains(c, "fitness") || strings.Contains(c, "exercise"):
		return fmt.Sprintf("Hi %s! I'd love to understand your relationship with fitness. How active would you say you are?", name)
	default:
		return fmt.Sprintf("Hi %s! I'm really interested to learn about your experiences with %s. How would you describe your relationship with it?", name, category)
	}
}

const defaultSystemPrompt = `You are an expert A&U (Attitudes & Usage) researcher conducting a skincare interview. Your goal is to understand this person's psychology, attitudes, and behaviors around skincare well enough to build a rich profile of them.

INTERVIEW STYLE:
- Conversational and curious, like a skilled qualitative researcher
- Ask ONE focused question at a time, never several in one response
- Keep responses brief and natural (1-2 sentences max)
- Pick up on ONE interesting detail from their response and explore it
- Gently explore contradictions between stated and revealed preferences

TOPIC AREAS (flow through them naturally):
1. Category relationship: how skincare fits into their life and identity, and how that has changed
2. Core attitudes: aging, what skincare means to them, confidence, reactions to marketing, trust and skepticism
3. Decision psychology: research habits, what builds confidence in a product, risk tolerance, influence sources, past regrets
4. Usage behaviors: current routine, context and mood changes, what would make them change
5. Values and priorities: simple vs. optimal, value alignment, core priorities

FLOW LOGIC:
- Routine mentioned: ask what happens when the routine is disrupted
- Research mentioned: dig into trusted sources and red flags
- Price mentioned: explore value vs. budget tensions
- Skin problems mentioned: understand the emotional impact
- Skepticism mentioned: understand what builds trust

When all areas are covered, end with:
"This has been really insightful. Is there anything else about your relationship with skincare that feels important for me to understand?"`

const questionnaireSystemPrompt = `You are a warm, curious researcher having a genuine conversation to understand this person's life and experiences around %s (%s). Your goal is to learn about their psychology, attitudes, and behaviors so their digital twin can predict how they think.
%s
You MUST cover ALL profile areas listed below during the interview.

PROFILE AREAS TO COVER:
%s

CONVERSATIONAL STYLE:
- This is a natural conversation, not a survey
- Ask ONE simple question at a time, never multiple questions
- Keep responses brief (1-2 sentences max)
- Use their own words when following up
- Show active listening before moving on

COMPLETION:
- Keep track of which areas you have explored
- Near the end, address any areas not yet covered
- The interview is not complete until every area above has been addressed`

// SystemPrompt returns the interviewer instructions for the given context.
func SystemPrompt(q *Questionnaire) string {
	if q == nil {
		return defaultSystemPrompt
	}
	title := q.Title
	if title == "" {
		title = "Custom Questionnaire"
	}
	var description string
	if q.Description != "" {
		description = "\nQuestionnaire focus: " + q.Description + "\n"
	}
	return fmt.Sprintf(questionnaireSystemPrompt, q.Topic(), title, description, CoverageAreas(q.Questions))
}

var sectionOrder = []string{
	"lifestyle", "media_and_culture", "personality", "values_and_beliefs",
	"skin_and_hair_type", "routine", "facial_moisturizer_attitudes", "moisturizer_usage",
}

var fieldDescriptions = map[string]map[string]string{
	"lifestyle": {
		"daily_life_work":   "Their daily routine, work situation, and how they structure their day",
		"activity_wellness": "Their approach to fitness, wellness, and staying healthy",
		"interests_hobbies": "Their hobbies, interests, and what they do for fun",
		"weekend_life":      "How they spend their weekends and free time",
	},
	"media_and_culture": {
		"news_information":       "How they stay informed and consume news",
		"social_media_use":       "Their relationship with social media and online presence",
		"tv_movies_sports":       "Their entertainment preferences: TV, movies, sports",
		"music":                  "Their music taste and listening habits",
		"celebrities_influences": "Public figures or influences they follow or admire",
	},
	"personality": {
		"self_description":         "How they would describe themselves to others",
		"misunderstood":            "Aspects of themselves they feel are often misunderstood",
		"curiosity_openness":       "Their curiosity level and openness to new experiences",
		"structure_vs_spontaneity": "Whether they prefer structure and planning or spontaneity",
		"social_energy":            "How they recharge, through socializing or alone time",
		"stress_challenge":         "How they handle stress and challenging situations",
		"signature_strengths":      "Their key strengths and what they're naturally good at",
	},
	"values_and_beliefs": {
		"core_values":                   "Their most important values and principles",
		"influence_advice":              "Who they turn to for advice and guidance",
		"cultural_political_engagement": "Their views on cultural and political topics",
		"aspirations_worldview":         "Their hopes, dreams, and how they see the world",
		"decision_priorities":           "What factors matter most when making important decisions",
	},
	"skin_and_hair_type": {
		"skin_type":     "Their skin type and characteristics",
		"skin_concerns": "Any skin concerns or issues they deal with",
		"hair_type":     "Their hair type and characteristics",
		"hair_concerns": "Any hair concerns or styling preferences",
	},
	"routine": {
		"morning_routine":              "Their morning beauty/skincare routine",
		"evening_routine":              "Their evening beauty/skincare routine",
		"time_on_routine":              "How much time they spend on beauty routines",
		"extra_products_in_routine":    "Special products or steps in their routine",
		"changes_based_on_seasonality": "How their routine changes with seasons or circumstances",
		"hero_product":                 "Their favorite or most important beauty product",
		"beauty_routine_frustrations":  "What frustrates them about beauty routines",
		"self_care_perception":         "How they view self-care and beauty routines",
		"beauty_routine_motivation":    "What motivates them to maintain beauty routines",
		"product_experimentation":      "Their approach to trying new beauty products",
		"buyer_type":                   "How they approach purchasing beauty products",
		"engagement_with_beauty":       "Their overall relationship with beauty and appearance",
	},
	"facial_moisturizer_attitudes": {
		"benefits_sought":    "What benefits they look for in facial moisturizers",
		"sustainable_values": "How sustainability and values influence their moisturizer choices",
	},
	"moisturizer_usage": {
		"current_product_usage": "Their current moisturizer and usage patterns",
	},
}

// FieldDescription turns a profile tag pair into an interviewer-facing area.
func FieldDescription(section, field string) string {
	if d, ok := fieldDescriptions[section][field]; ok {
		return d
	}
	return titleCase(strings.ReplaceAll(section, "_", " ")) + ": " + strings.ReplaceAll(field, "_", " ")
}

// CoverageAreas lists the profile areas the questions are tagged with, one
// bullet per unique section.field, known sections first in a fixed order.
func CoverageAreas(questions []Question) string {
	type area struct{ section, text string }
	var areas []area
	seen := make(map[string]bool)
	for _, q := range questions {
		section, field := q.Section(), q.Field()
		if section == "" {
			continue
		}
		key := section + "." + field
		if seen[key] {
			continue
		}
		seen[key] = true
		areas = append(areas, area{section: section, text: FieldDescription(section, field)})
	}
	if len(areas) == 0 {
		return "- Their background and current situation\n- Personal interests and values\n- Daily life and experiences"
	}

	known := make(map[string]bool, len(sectionOrder))
	var lines []string
	for _, section := range sectionOrder {
		known[section] = true
		for _, a := range areas {
			if a.section == section {
				lines = append(lines, "- "+a.text)
			}
		}
	}
	for _, a := range areas {
		if !known[a.section] {
			lines = append(lines, "- "+a.text)
		}
	}
	return strings.Join(lines, "\n")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
