package analyzer

import "strings"

// Stemmer folds common English inflections so "dogs", "dogged" and
// "dogging" share a bucket with "dog". It only strips suffixes; it never
// rewrites the stem the way a full Porter stemmer does.
type Stemmer struct {
	minStem int
}

func NewStemmer() *Stemmer {
	return &Stemmer{minStem: 3}
}

// Stem returns word with one inflectional suffix removed.
func (s *Stemmer) Stem(word string) string {
	if len(word) <= s.minStem {
		return word
	}

	switch {
	case strings.HasSuffix(word, "ies") && len(word) > s.minStem+2:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ing"):
		return s.undouble(word[:len(word)-3], word)
	case strings.HasSuffix(word, "ed"):
		return s.undouble(word[:len(word)-2], word)
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

// undouble drops a doubled final consonant ("runn" -> "run"). Stems shorter
// than minStem or without a vowel fall back to the original word.
func (s *Stemmer) undouble(stem, word string) string {
	if len(stem) < s.minStem || !strings.ContainsAny(stem, "aeiouy") {
		return word
	}
	n := len(stem)
	if n >= 2 && stem[n-1] == stem[n-2] && !isVowel(stem[n-1]) && !strings.ContainsRune("lsz", rune(stem[n-1])) {
		return stem[:n-1]
	}
	return stem
}

func isVowel(b byte) bool {
	return strings.IndexByte("aeiou", b) >= 0
}
