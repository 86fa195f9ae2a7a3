package prompts

import "strings"

// ============================================================================
// QA Prompts
// ============================================================================

// NoContextMarker replaces the context when retrieval returns nothing.
// The completion model always receives a non-empty context.
const NoContextMarker = "No context found in the video."

// CannotAnswer is the reply the model is told to give when the context is insufficient.
const CannotAnswer = "I cannot answer this question with the available context."

// QASystemPrompt defines the assistant role for answering questions about a video.
const QASystemPrompt = `You are an assistant that answers questions about videos.
Use only the provided context to answer the question.
If you cannot answer the question from the given context, reply "` + CannotAnswer + `"

The context is divided into numbered segments. You may refer to these segments in your answer.
When you cite a specific segment, put its number in square brackets, for example: [Segment 1].`

// qaUserTemplate holds the retrieved context and the question.
const qaUserTemplate = `Context:
{context}

Question: {question}

Answer:`

// BuildQAUserPrompt fills the user prompt with the assembled context and the question.
func BuildQAUserPrompt(context, question string) string {
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(qaUserTemplate)
}

// ============================================================================
// Segment formatting
// ============================================================================

// SegmentRule frames each segment header in the assembled context.
var SegmentRule = strings.Repeat("=", 50)

// FormatSegment renders one retrieved chunk with a header the model can cite.
// Parameters:
//   - index: chunk_index metadata value as stored.
//   - timestamp: HH:MM:SS start of the chunk, or "" when unknown.
//   - text: chunk text.
// Returns:
//   - string: header, blank line, trimmed text, trailing newline.
func FormatSegment(index, timestamp, text string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(SegmentRule)
	b.WriteString("\nSEGMENT ")
	b.WriteString(index)
	if timestamp != "" {
		b.WriteString(" (Timestamp: ")
		b.WriteString(timestamp)
		b.WriteString(")")
	}
	b.WriteString("\n")
	b.WriteString(SegmentRule)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n")
	return b.String()
}

// ============================================================================
// Transcription Prompts
// ============================================================================

// WhisperPrompt nudges the speech model toward punctuated sentences,
// which gives the chunker better split points.
const WhisperPrompt = "Hello. This is a transcript with proper punctuation, sentences and paragraphs."
