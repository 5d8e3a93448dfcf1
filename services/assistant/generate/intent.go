// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generate turns matched entities and graph facts into a
// natural-language answer through three tiers: LLM-backed generation,
// rule-based templates, and a text-fallback floor that never fails.
package generate

import "strings"

// =============================================================================
// Intent Classification
// =============================================================================

// Intent is the coarse classification of a question's goal, used by the
// rule-based tier to select a response template.
type Intent string

const (
	// IntentSymptomsOfDisease: "what are the symptoms of malaria?"
	IntentSymptomsOfDisease Intent = "symptoms_of_disease"

	// IntentDiseasesForSymptoms: "what could cause fever and chills?"
	IntentDiseasesForSymptoms Intent = "diseases_for_symptoms"

	// IntentGeneral: anything else; answered with a generic facts dump.
	IntentGeneral Intent = "general"
)

// symptomsOfKeywords signal a symptoms-of-disease question.
var symptomsOfKeywords = []string{
	"symptom", "symptoms", "sign", "signs", "present", "manifest",
}

// diseasesForKeywords signal a diseases-for-symptom question.
var diseasesForKeywords = []string{
	"cause", "causes", "disease", "diseases", "condition", "conditions",
	"diagnos", "could i have", "what do i have", "why do i have",
}

// ClassifyIntent classifies a question by keyword sets.
//
// # Description
//
// Pattern-based, not model-based: keyword hits vote for each intent and
// the higher count wins. Ambiguous phrasing — both or neither keyword set
// firing equally — defaults to IntentGeneral, which the secondary tier
// answers with a generic facts dump.
func ClassifyIntent(question string) Intent {
	q := strings.ToLower(question)

	var symptomsOf, diseasesFor int
	for _, kw := range symptomsOfKeywords {
		if strings.Contains(q, kw) {
			symptomsOf++
		}
	}
	for _, kw := range diseasesForKeywords {
		if strings.Contains(q, kw) {
			diseasesFor++
		}
	}

	switch {
	case symptomsOf > diseasesFor:
		return IntentSymptomsOfDisease
	case diseasesFor > symptomsOf:
		return IntentDiseasesForSymptoms
	default:
		return IntentGeneral
	}
}
