// Prompt construction for the dialogue turn, recipe generation, and memory
// extraction. Prompts are template-filled from the user profile and the
// generation request; they are the only place where model-facing wording
// lives, so behavioral tweaks stay out of the orchestration code.
package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adilkhanna/scratch-meal/internal/domain"
	"github.com/adilkhanna/scratch-meal/internal/spoonacular"
)

// defaultPantry is assumed when a profile has no pantry basics saved.
var defaultPantry = []string{"Salt", "Pepper", "Oil", "Sugar", "Flour"}

// buildSystemPrompt fills the assistant's capability and rule set with the
// user's saved profile. Missing fields fall back to generic values so a brand
// new user gets the same conversation shape as a returning one.
func buildSystemPrompt(displayName string, dietaryPreferences, pantryBasics []string, memory []domain.MemoryFact) string {
	if displayName == "" {
		displayName = "there"
	}
	dietaryStr := "None saved yet"
	if len(dietaryPreferences) > 0 {
		dietaryStr = strings.Join(dietaryPreferences, ", ")
	}
	pantry := pantryBasics
	if len(pantry) == 0 {
		pantry = defaultPantry
	}
	memoryStr := "- New user, no memory yet"
	if len(memory) > 0 {
		lines := make([]string, len(memory))
		for i, m := range memory {
			lines[i] = "- " + m.Fact
		}
		memoryStr = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`You are the Scratch Meal cooking assistant — warm, knowledgeable, and efficient. You help people figure out what to cook with what they have.

PERSONALITY:
- Friendly but concise. 1-3 sentences max unless explaining something specific.
- If the user provides everything in one message, skip pleasantries and generate recipes.
- Never lecture about health. Never be preachy.
- Use casual, warm language.

USER: %s
DIETARY PREFERENCES (saved): %s
PANTRY BASICS (always available — don't ask about these): %s

MEMORY (things you know about this person):
%s

YOUR CAPABILITIES:
1. INGREDIENT COLLECTION: Ask what ingredients they have. They can type them or upload food photos. If a photo was uploaded, you'll see a message like "[PHOTO_INGREDIENTS: tomato, onion, garlic]" — acknowledge those ingredients naturally.
2. DIETARY CHECK: If no dietary preferences are saved, casually ask if they have any allergies or dietary restrictions. If preferences ARE saved, skip this unless they mention something new.
3. TIME CHECK: Ask how much time they have for cooking. Accept natural language like "quick", "30 minutes", "I have an hour". Map to the nearest value: 15, 30, 45, 60, 90, or 120 minutes.
4. RECIPE GENERATION: Once you have (a) at least 1 ingredient, (b) a time range, and optionally (c) dietary info — tell the user you're generating recipes. Then output the special token on its own line:
[GENERATE_RECIPES]{"ingredients": ["ingredient1", "ingredient2"], "dietaryConditions": ["condition1"], "timeRange": "30"}
5. RECIPE FEEDBACK: When the user comments on recipes, acknowledge their feedback warmly.

RULES:
- NEVER generate recipe JSON yourself. ONLY use the [GENERATE_RECIPES] token to trigger the external recipe system.
- Pantry basics are ALWAYS available — never ask the user about them. Include them automatically when generating.
- If the user provides all information in one message (ingredients + time + any preferences), go DIRECTLY to [GENERATE_RECIPES]. Do not ask unnecessary follow-up questions.
- Keep responses concise. 1-3 sentences max.
- After recipe generation, ask if they'd like different options or if they're happy with the results.
- When greeting a returning user with memory, reference what you know naturally (e.g., "Hey! Last time you loved that chicken curry — what are we making today?").`,
		displayName, dietaryStr, strings.Join(pantry, ", "), memoryStr)
}

// recipeJSONShape is the response contract shared by both generation prompts.
// maxMinutes is interpolated into the cookTime example.
func recipeJSONShape(maxMinutes int, withSource bool) string {
	source := ""
	if withSource {
		source = `,
      "sourceRecipe": {
        "title": "Original Recipe Title",
        "sourceUrl": "original recipe URL",
        "spoonacularId": 12345
      }`
	}
	return fmt.Sprintf(`{
  "recipes": [
    {
      "name": "Recipe Name",
      "description": "Brief appetizing 2-sentence description",
      "cookTime": "%d minutes or less",
      "difficulty": "Easy" | "Medium" | "Hard",
      "keyIngredients": ["main ingredient 1", "main ingredient 2", "main ingredient 3"],
      "ingredients": [
        { "name": "ingredient", "quantity": "1", "unit": "cup" }
      ],
      "instructions": ["Step 1...", "Step 2..."],
      "tips": ["Helpful tip"],
      "nutritionInfo": {
        "servings": 2,
        "calories": 350,
        "protein": "25g",
        "carbs": "30g",
        "fat": "15g"
      }%s
    }
  ]
}`, maxMinutes, source)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- None"
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + it
	}
	return strings.Join(lines, "\n")
}

// timeBudgetMinutes parses the requested time range. Values outside the
// enumerated set are forwarded as-is; only unparseable input falls back.
func timeBudgetMinutes(timeRange string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(timeRange)); err == nil && n > 0 {
		return n
	}
	return 30
}

// buildInventPrompt asks the model to invent a full recipe batch directly
// from the constraints (the ungrounded path).
func buildInventPrompt(req GenerationRequest) string {
	maxMinutes := timeBudgetMinutes(req.TimeRange)
	return fmt.Sprintf(`You are a professional chef. Create exactly %d unique, practical recipes using the available ingredients while respecting ALL dietary constraints.

AVAILABLE INGREDIENTS:
%s

DIETARY CONSTRAINTS (MUST FOLLOW ALL):
%s

TIME CONSTRAINT: Maximum %d minutes total (prep + cooking)

REQUIREMENTS:
1. Each recipe MUST primarily use the available ingredients (you may assume basic pantry staples like salt, pepper, oil, water)
2. Each recipe MUST comply with ALL dietary constraints listed
3. Each recipe MUST be completable within %d minutes
4. Provide %d DIVERSE recipes (different cuisines and cooking methods)
5. Include at least one "Easy" difficulty recipe

Return ONLY a JSON object with this EXACT structure:
%s`,
		RecipeBatchSize,
		bulletList(req.Ingredients),
		bulletList(req.DietaryConditions),
		maxMinutes, maxMinutes, RecipeBatchSize,
		recipeJSONShape(maxMinutes, false))
}

// buildAdaptPrompt asks the model to rewrite real reference recipes to fit
// the constraints while preserving each original's identity and attaching
// provenance (the grounded path).
func buildAdaptPrompt(req GenerationRequest, refs []spoonacular.RecipeDetail) string {
	maxMinutes := timeBudgetMinutes(req.TimeRange)

	ctxParts := make([]string, len(refs))
	for i, r := range refs {
		var steps []string
		if len(r.AnalyzedInstructions) > 0 {
			for _, s := range r.AnalyzedInstructions[0].Steps {
				steps = append(steps, s.Step)
			}
		}
		ings := make([]string, len(r.ExtendedIngredients))
		for j, e := range r.ExtendedIngredients {
			ings[j] = e.Original
		}
		ctxParts[i] = fmt.Sprintf("RECIPE %d: %q (%d min, serves %d, spoonacularId %d, url %s)\nIngredients: %s\nSteps: %s",
			i+1, r.Title, r.ReadyInMinutes, r.Servings, r.ID, r.SourceURL,
			strings.Join(ings, "; "), strings.Join(steps, " "))
	}

	return fmt.Sprintf(`You are a professional chef. You have %d REAL recipes as reference. Adapt each one to create a practical version using ONLY the user's available ingredients while respecting dietary constraints and time limits.

AVAILABLE INGREDIENTS:
%s

DIETARY CONSTRAINTS (MUST FOLLOW ALL):
%s

TIME CONSTRAINT: Maximum %d minutes total (prep + cooking)

REFERENCE RECIPES (adapt these — keep the essence but modify for the user's ingredients and constraints):
%s

REQUIREMENTS:
1. Produce exactly %d adapted recipes (one per reference recipe above)
2. Each recipe MUST primarily use the user's available ingredients (you may assume basic pantry staples)
3. Each recipe MUST comply with ALL dietary constraints
4. Each recipe MUST be completable within %d minutes — if a reference recipe takes longer, simplify it
5. Keep the spirit/name of the original recipe but adapt ingredients and steps as needed
6. Include at least one "Easy" difficulty recipe
7. Fill sourceRecipe with each reference recipe's title, url, and spoonacularId

Return ONLY a JSON object with this EXACT structure:
%s`,
		len(refs),
		bulletList(req.Ingredients),
		bulletList(req.DietaryConditions),
		maxMinutes,
		strings.Join(ctxParts, "\n\n"),
		len(refs), maxMinutes,
		recipeJSONShape(maxMinutes, true))
}

// buildMemoryPrompt instructs the model to mine a transcript for durable
// facts, listing already-known facts so they are never repeated.
func buildMemoryPrompt(existing []domain.MemoryFact) string {
	prompt := `Analyze this conversation and extract key facts about the user that would be useful for future cooking conversations. Focus on:

1. Food preferences and dislikes (e.g., "loves spicy food", "doesn't eat mushrooms")
2. Household info (e.g., "cooking for a family of 4", "has a toddler")
3. Health/dietary facts (e.g., "lactose intolerant", "trying to eat less sugar")
4. Cooking habits (e.g., "usually cooks quick weeknight meals", "enjoys baking")
5. Recipe feedback (e.g., "loved the butter chicken recipe", "thought the pasta was too bland")

Return ONLY a JSON object with a "facts" array. Maximum 5 facts per conversation. Only include facts that are clearly stated or strongly implied:
{
  "facts": [
    {"fact": "Description of the fact", "category": "preference|household|health|taste|feedback", "confidence": 0.9}
  ]
}

If no memorable facts, return: {"facts": []}`

	if len(existing) > 0 {
		lines := make([]string, len(existing))
		for i, f := range existing {
			lines[i] = "- " + f.Fact
		}
		prompt += "\n\nALREADY KNOWN FACTS (do not repeat these):\n" + strings.Join(lines, "\n")
	}
	return prompt
}
