// Package html provides a DocumentNormaliser for candidate documents whose
// content arrives as HTML. It strips tags, scripts, styles and shortcodes and
// decodes entities so the prompt carries readable text.
package html
