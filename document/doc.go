// Package document extracts plain text from uploaded candidate documents.
// Resumes arrive as PDF, plain text or markdown; everything downstream
// (resume analysis, question generation) works on plain text only.
package document
