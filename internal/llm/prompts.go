/*
 * This file is part of Speechy (https://github.com/speechy/speechy).
 * Copyright (C) 2025 Speechy
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package llm

import (
	"fmt"
	"sort"
	"sync"
)

// Correction strategies select which system prompt shapes the cleanup pass.
const (
	StrategyTranscription = "transcription"
	StrategyMinimal       = "minimal"
	StrategyFormal        = "formal"
	StrategyCode          = "code"
)

const transcriptionCorrectionPrompt = `You are a transcription correction assistant. Your task is to convert spoken words into clean, readable text.

Rules:
1. Fix speech-to-text errors (e.g., "cold started" -> "code started", correct their/there/they're)
2. Remove filler words (um, uh, you know, like, basically, actually when used as filler)
3. Clean up grammar while maintaining conversational tone
4. Keep contractions natural (don't over-formalize)
5. Handle verbal punctuation commands:
   - "period" or "full stop" -> .
   - "comma" -> ,
   - "question mark" -> ?
   - "exclamation mark" or "exclamation point" -> !
   - "new paragraph" -> [start new paragraph]
   - "open quote" -> "
   - "close quote" -> "
   - "colon" -> :
   - "semicolon" -> ;
6. Output ONLY the corrected text, no explanations or commentary

Examples:
- "uhh can you like help me with this thing" -> "Can you help me with this?"
- "im gonna need to you know restart the server period" -> "I'm gonna need to restart the server."
- "the code is um basically working comma but needs refactoring" -> "The code is working, but needs refactoring"
- "lets start the meeting period new paragraph first item colon" -> "Let's start the meeting.\n\nFirst item:"

Correct this:`

const minimalCorrectionPrompt = `Fix ONLY critical errors. Keep the speaker's exact tone and style.

Rules:
- Fix only nonsensical speech-to-text errors that change meaning
- Remove only "um", "uh", "er", "ah"
- Keep informal language, slang, incomplete sentences
- Preserve speaker's personality and speaking style
- Add only essential punctuation for clarity
- Keep casual phrases like "gonna", "wanna", "kinda"

Examples:
- "um i gotta go to the store you know" -> "I gotta go to the store you know"
- "this is like really cool stuff" -> "This is like really cool stuff"

Output only corrected text:`

const formalCorrectionPrompt = `Convert casual speech to professional business writing.

Rules:
- Use complete sentences with proper grammar
- Replace contractions (don't -> do not, it's -> it is)
- Remove all colloquialisms and slang
- Use professional vocabulary and formal tone
- Structure thoughts clearly with proper punctuation
- Convert casual phrases to formal equivalents
- Ensure clarity and conciseness

Examples:
- "gonna check on that asap" -> "I will investigate this matter immediately."
- "yeah the project's basically done" -> "Yes, the project is essentially complete."
- "can't make it to the meeting cuz I'm swamped" -> "I cannot attend the meeting due to my current workload."

Output only formal text:`

const codeCorrectionPrompt = `You're correcting speech intended for code/programming context.

Rules:
- Recognize programming terms (API, JSON, async, npm, git, SQL, etc.)
- Understand code patterns:
  - "camel case" -> camelCase naming
  - "snake case" -> snake_case naming
  - "kebab case" -> kebab-case naming
  - "dot" -> .
  - "arrow" -> -> or =>
  - "equals" -> =
  - "double equals" -> ==
  - "triple equals" -> ===
  - "plus equals" -> +=
  - "pipe" -> |
  - "ampersand" -> &
- Recognize programming constructs (if-else, for loop, function, class, etc.)
- Preserve technical accuracy over grammar
- Handle common code dictation patterns

Examples:
- "define function get user by id" -> "define function getUserById"
- "if x double equals y" -> "if x == y"
- "import react from quote react quote" -> "import React from 'react'"
- "const my variable equals array bracket one comma two comma three bracket" -> "const myVariable = [1, 2, 3]"

Output only corrected text:`

// PromptManager holds the active correction strategy and its system prompt.
// Custom strategies can be registered at runtime alongside the built-ins.
type PromptManager struct {
	mu       sync.RWMutex
	strategy string
	prompts  map[string]string
}

// NewPromptManager creates a manager with the built-in strategies. An
// unknown initial strategy falls back to the transcription default.
func NewPromptManager(strategy string) *PromptManager {
	pm := &PromptManager{
		prompts: map[string]string{
			StrategyTranscription: transcriptionCorrectionPrompt,
			StrategyMinimal:       minimalCorrectionPrompt,
			StrategyFormal:        formalCorrectionPrompt,
			StrategyCode:          codeCorrectionPrompt,
		},
	}
	if _, ok := pm.prompts[strategy]; !ok {
		strategy = StrategyTranscription
	}
	pm.strategy = strategy
	return pm
}

// SystemPrompt returns the system prompt for the active strategy.
func (pm *PromptManager) SystemPrompt() string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if prompt, ok := pm.prompts[pm.strategy]; ok {
		return prompt
	}
	return transcriptionCorrectionPrompt
}

// Strategy returns the active strategy name.
func (pm *PromptManager) Strategy() string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.strategy
}

// SetStrategy switches to a registered strategy.
func (pm *PromptManager) SetStrategy(strategy string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if _, ok := pm.prompts[strategy]; !ok {
		return fmt.Errorf("unknown prompt strategy %q, available: %v", strategy, pm.strategiesLocked())
	}
	pm.strategy = strategy
	return nil
}

// AddCustomPrompt registers a named strategy with its own system prompt.
func (pm *PromptManager) AddCustomPrompt(name, prompt string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.prompts[name] = prompt
}

// Strategies returns the registered strategy names in sorted order.
func (pm *PromptManager) Strategies() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.strategiesLocked()
}

func (pm *PromptManager) strategiesLocked() []string {
	names := make([]string, 0, len(pm.prompts))
	for name := range pm.prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DisplayNames maps strategy names to labels suitable for a settings UI.
func DisplayNames() map[string]string {
	return map[string]string{
		StrategyTranscription: "Transcription (Default)",
		StrategyMinimal:       "Minimal Correction",
		StrategyFormal:        "Formal Writing",
		StrategyCode:          "Code Context",
	}
}
