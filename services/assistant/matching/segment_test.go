// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matching

import "testing"

func TestSegment_DropsStopwordsAndPunctuation(t *testing.T) {
	phrases := Segment("What are the symptoms of Malaria?", 0)

	// Only "malaria" survives the stopword filter.
	if len(phrases) != 1 {
		t.Fatalf("expected 1 phrase, got %d: %+v", len(phrases), phrases)
	}
	if phrases[0].Text != "malaria" {
		t.Errorf("phrase = %q, want malaria", phrases[0].Text)
	}
}

func TestSegment_LongestNgramsFirst(t *testing.T) {
	phrases := Segment("severe abdominal pain", 0)

	if len(phrases) == 0 {
		t.Fatal("expected phrases")
	}
	if phrases[0].Text != "severe abdominal pain" {
		t.Errorf("first phrase = %q, want the full trigram", phrases[0].Text)
	}
	last := phrases[len(phrases)-1]
	if last.End-last.Start != 1 {
		t.Errorf("last phrase should be a single token, got span %d..%d", last.Start, last.End)
	}
}

func TestSegment_SpansIndexFilteredTokens(t *testing.T) {
	phrases := Segment("fever and chills", 0)

	// "and" is a stopword; the remaining tokens are [fever chills].
	want := map[string]bool{"fever chills": false, "fever": false, "chills": false}
	for _, p := range phrases {
		if _, ok := want[p.Text]; !ok {
			t.Errorf("unexpected phrase %q", p.Text)
			continue
		}
		want[p.Text] = true
	}
	for text, seen := range want {
		if !seen {
			t.Errorf("missing phrase %q", text)
		}
	}
}

func TestSegment_EmptyInput(t *testing.T) {
	if phrases := Segment("", 0); phrases != nil {
		t.Errorf("expected nil for empty input, got %v", phrases)
	}
	if phrases := Segment("what are the", 0); phrases != nil {
		t.Errorf("expected nil for all-stopword input, got %v", phrases)
	}
}

func TestSegment_HonorsTokenCap(t *testing.T) {
	question := "vertigo paroymsal positional vertigo"

	phrases := Segment(question, 4)
	if len(phrases) == 0 || phrases[0].Text != question {
		t.Errorf("cap 4 must emit the full 4-gram first, got %+v", phrases)
	}

	// The default cap never emits n-grams above defaultMaxPhraseTokens.
	for _, p := range Segment(question, 0) {
		if p.End-p.Start > defaultMaxPhraseTokens {
			t.Errorf("default cap emitted %d-token phrase %q", p.End-p.Start, p.Text)
		}
	}
}

func TestSegment_KeepsHyphens(t *testing.T) {
	phrases := Segment("blurred-vision", 0)
	if len(phrases) != 1 || phrases[0].Text != "blurred-vision" {
		t.Errorf("expected hyphenated token preserved, got %+v", phrases)
	}
}
