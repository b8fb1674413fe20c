// Package agent implements the prompt-level collaborators of the interview:
// resume analysis, question generation, answer evaluation, follow-up
// decisions and the final feedback report. Each collaborator sends one
// blocking generation request and decodes the structured JSON contract from
// the reply. A transport failure from the Generator propagates to the
// caller; a malformed reply never does, because every collaborator recovers
// with a fixed neutral default instead.
package agent
