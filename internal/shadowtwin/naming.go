// -----------------------------------------------------------------------
// Shadow Twin Naming - Deterministic artifact file and folder names
// -----------------------------------------------------------------------

// Package shadowtwin locates and writes the derived artifacts (transcripts
// and template transformations) of library source files, across the
// filesystem layout and the document-store backend.
package shadowtwin

import (
	"strings"
)

// knownSourceExtensions are the upload types the pipeline accepts. Base names
// are derived by stripping exactly one of these; any other dots in a file
// name are part of the name itself.
var knownSourceExtensions = []string{
	".pdf", ".epub",
	".mp3", ".m4a", ".wav", ".ogg", ".flac", ".aac",
	".mp4", ".webm", ".mov", ".mkv", ".avi",
	".txt", ".md", ".markdown", ".html", ".htm",
}

// ArtifactBaseName strips the known source extension from a file name.
// Only the recognized extension is removed, never everything after the
// first dot: "Commoning vs. Kommerz.pdf" -> "Commoning vs. Kommerz".
func ArtifactBaseName(sourceName string) string {
	lower := strings.ToLower(sourceName)
	for _, ext := range knownSourceExtensions {
		if strings.HasSuffix(lower, ext) {
			return sourceName[:len(sourceName)-len(ext)]
		}
	}
	return sourceName
}

// FolderName returns the shadow twin folder name for a source file: a
// dotted-hidden sibling folder next to the source.
func FolderName(sourceName string) string {
	return "." + sourceName
}

// TranscriptFileName builds the artifact file name for a transcript:
// <base>.<lang>.md
func TranscriptFileName(sourceName, language string) string {
	return ArtifactBaseName(sourceName) + "." + language + ".md"
}

// TransformationFileName builds the artifact file name for a template
// transformation: <base>.<template>.<lang>.md
func TransformationFileName(sourceName, template, language string) string {
	return ArtifactBaseName(sourceName) + "." + TemplateBaseName(template) + "." + language + ".md"
}

// TemplateBaseName normalizes a template file name to its bare name
func TemplateBaseName(template string) string {
	return strings.TrimSuffix(template, ".md")
}

// TemplateFromFileName recovers the template segment of a transformation
// file name, given the source it belongs to. Returns "" when the name does
// not follow the transformation grammar.
func TemplateFromFileName(fileName, sourceName, language string) string {
	base := ArtifactBaseName(sourceName)
	prefix := base + "."
	suffix := "." + language + ".md"
	if !strings.HasPrefix(fileName, prefix) || !strings.HasSuffix(fileName, suffix) {
		return ""
	}
	middle := fileName[len(prefix) : len(fileName)-len(suffix)]
	if middle == "" || strings.Contains(middle, "/") {
		return ""
	}
	return middle
}
