package extractor

const systemPrompt = `You build digital-twin profiles from interview transcripts. You read for psychology, not just facts: what drives this person's choices, where their words and actions disagree, and how they trade one priority against another. You always answer with a single JSON object and nothing else.`

// extractionUserPrompt takes the participant name and the transcript.
const extractionUserPrompt = `Build a structured profile of %s from the interview transcript below. The profile must be detailed enough that another model could predict how this person would answer closed-option survey questions.

TRANSCRIPT:
%s

Return JSON with exactly these top-level keys:

{
  "pai_id": "placeholder",
  "demographics": {
    "age_range": "e.g. 25-34",
    "lifestyle": "e.g. urban_professional",
    "context": "short description of their situation"
  },
  "core_attitudes": {
    "aging_approach": "proactive_prevention | acceptance | denial | anxiety",
    "beauty_philosophy": "natural | scientific | minimal | maximalist",
    "risk_tolerance": "conservative | moderate | experimental",
    "trust_orientation": "science_driven | social_proof | brand_loyalty | price_focused"
  },
  "decision_psychology": {
    "research_style": "deep_researcher | quick_decider | social_validator | impulse_buyer",
    "influence_hierarchy": ["ordered list of what sways them"],
    "purchase_triggers": ["what makes them buy"],
    "regret_patterns": ["what they have regretted before"]
  },
  "usage_patterns": {
    "routine_adherence": "rigid | flexible | minimal | elaborate",
    "context_sensitivity": "what situations change their behavior",
    "emotional_drivers": ["feelings behind the behavior"],
    "change_catalysts": ["what would make them change"]
  },
  "value_system": {
    "priority_hierarchy": ["ordered priorities"],
    "non_negotiables": ["hard requirements"],
    "ideal_outcome": "what success looks like to them",
    "core_motivation": "the underlying reason they care"
  },
  "behavioral_quotes": ["short verbatim quotes that reveal how they decide"],
  "prediction_weights": {
    "price_sensitivity": 0.0,
    "ingredient_focus": 0.0,
    "routine_complexity_tolerance": 0.0,
    "brand_loyalty": 0.0,
    "social_influence_susceptibility": 0.0
  }
}

Guidelines:
- Every prediction weight is a number between 0 and 1 reflecting how strongly and consistently the trait showed up.
- Prefer evidence from concrete examples over general statements.
- Note contradictions between stated and revealed preferences inside the relevant section.
- Quotes must come from the participant, not the interviewer.

Return ONLY the JSON object.`
