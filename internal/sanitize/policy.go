package sanitize

import "regexp"

// Policy fixes the limits the filter enforces. The pattern tables are not
// part of the policy: they are a property of the filter itself.
type Policy struct {
	// MaxRunes is the hard length gate, applied after normalization and
	// line truncation. Exceeding it is a security violation, not a trim.
	MaxRunes int

	// MaxLines caps the total line count; extra lines are dropped from
	// the end.
	MaxLines int

	// Placeholder replaces each stripped markup span in place.
	Placeholder string
}

// DefaultPolicy matches the product limits for AI-generated TIL text.
var DefaultPolicy = Policy{
	MaxRunes:    5000,
	MaxLines:    100,
	Placeholder: "[filtered]",
}

type pattern struct {
	name string
	re   *regexp.Regexp
}

// markupPatterns are stripped in order and replaced with the placeholder.
// A hit is logged but does not fail the text.
var markupPatterns = []pattern{
	{"script-tag", regexp.MustCompile(`(?i)<\s*/?\s*script[^>]*>`)},
	{"iframe-tag", regexp.MustCompile(`(?i)<\s*/?\s*iframe[^>]*>`)},
	{"event-handler", regexp.MustCompile(`(?i)\bon\w+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)},
	{"javascript-uri", regexp.MustCompile(`(?i)javascript\s*:`)},
	{"vbscript-uri", regexp.MustCompile(`(?i)vbscript\s*:`)},
	{"data-html-uri", regexp.MustCompile(`(?i)data\s*:\s*text/html`)},
	{"file-uri", regexp.MustCompile(`(?i)\bfile://`)},
	{"blob-uri", regexp.MustCompile(`(?i)\bblob:`)},
	{"eval-call", regexp.MustCompile(`(?i)\beval\s*\(`)},
	{"exec-call", regexp.MustCompile(`(?i)\bexec\s*\(`)},
	{"alert-call", regexp.MustCompile(`(?i)\balert\s*\(`)},
	{"document-cookie", regexp.MustCompile(`(?i)document\.cookie`)},
	{"window-location", regexp.MustCompile(`(?i)window\.location`)},
}

// injectionPatterns hard-fail the whole text. The table covers instruction
// override and role reassignment phrasings in English and Korean.
var injectionPatterns = []pattern{
	{"ignore-instructions", regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous|prior|above)\s+(?:instructions|prompts|rules)`)},
	{"disregard-instructions", regexp.MustCompile(`(?i)disregard\s+(?:all\s+)?(?:previous|prior|above|the)\s+(?:instructions|prompts|rules)`)},
	{"forget-previous", regexp.MustCompile(`(?i)forget\s+(?:everything|all\s+previous)`)},
	{"role-reassignment", regexp.MustCompile(`(?i)\byou\s+are\s+now\b`)},
	{"act-as", regexp.MustCompile(`(?i)\bact\s+as\s+(?:if|an?)\b`)},
	{"new-instructions", regexp.MustCompile(`(?i)new\s+instructions\s*:`)},
	{"system-prompt", regexp.MustCompile(`(?i)system\s+prompt`)},
	{"reveal-prompt", regexp.MustCompile(`(?i)reveal\s+your\s+(?:system\s+)?prompt`)},
	{"ignore-instructions-ko", regexp.MustCompile(`이전\s*지시`)},
	{"disregard-instructions-ko", regexp.MustCompile(`지시를?\s*무시`)},
	{"disregard-commands-ko", regexp.MustCompile(`명령을?\s*무시`)},
	{"system-prompt-ko", regexp.MustCompile(`시스템\s*프롬프트`)},
	{"role-reassignment-ko", regexp.MustCompile(`역할을\s*바꿔`)},
	{"you-are-now-ko", regexp.MustCompile(`너는\s*이제`)},
	{"reveal-prompt-ko", regexp.MustCompile(`프롬프트를?\s*공개`)},
}
