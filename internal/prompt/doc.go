// Package prompt turns a stored template into the literal prompt text sent to
// the clipboard or to an on-device model.
//
// Clipboard prompts keep the template's structured instructions; only the
// image-count phrase is rewritten. Local prompts are flattened for small
// vision models: built-in templates map to pre-simplified instructions and
// custom ones are stripped of markdown emphasis and output format directives.
// Generation is pure and deterministic.
package prompt
