package predictor

const systemPrompt = `You predict how a specific person would answer survey questions, using their digital-twin profile as your only evidence. You always choose exactly one of the offered options and answer with a single JSON object.`

// predictionUserPrompt takes the indented profile JSON, the question and the
// bulleted options.
const predictionUserPrompt = `PROFILE:
%s

QUESTION:
%s

OPTIONS:
%s

Work through it in this order:
1. For each option, describe the kind of person who would pick it.
2. Match the profile against those descriptions: attitudes, decision habits, past behavior, emotional drivers.
3. Explain the prediction, citing specific profile elements and why the other options fit worse.
4. Pick ONE option. The predicted_answer must be copied exactly from the list above.
5. List anything missing or contradictory in the profile that lowers your confidence.

Respond with JSON only:
{
  "predicted_answer": "one option, copied exactly",
  "confidence": 0.0,
  "reasoning": "why this person picks this option",
  "uncertainty_flags": ["gaps or contradictions"],
  "option_analysis": {"<option>": "who would choose it"}
}`
