// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generate

import "testing"

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     Intent
	}{
		{"symptoms question", "What are the symptoms of Malaria?", IntentSymptomsOfDisease},
		{"signs question", "What signs does diabetes present with?", IntentSymptomsOfDisease},
		{"causes question", "What could cause fever and chills?", IntentDiseasesForSymptoms},
		{"diagnosis question", "Can you diagnose me? Why do I have a headache?", IntentDiseasesForSymptoms},
		{"tell me about", "Tell me about Malaria", IntentGeneral},
		{"empty", "", IntentGeneral},
		{"both keyword sets tie", "what disease has this symptom", IntentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyIntent(tt.question); got != tt.want {
				t.Errorf("ClassifyIntent(%q) = %s, want %s", tt.question, got, tt.want)
			}
		})
	}
}
