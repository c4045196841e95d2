package model

// TextMethod records which strategy supplied recovered document text.
type TextMethod string

const (
	TextMethodNative TextMethod = "native"
	TextMethodOCR    TextMethod = "ocr"
	TextMethodHybrid TextMethod = "hybrid"
)

// ExtractionResult describes how text was recovered from a document.
// OCRPages holds 0-based page indexes that were sent to optical recognition.
type ExtractionResult struct {
	Method   TextMethod `json:"method"`
	Chars    int        `json:"chars"`
	OCRPages []int      `json:"pages_ocrd"`
	Digest   string     `json:"digest"`
}
