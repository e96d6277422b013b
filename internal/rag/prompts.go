package rag

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the instruction texts sent to the chat model.
// Every field can be overridden from a YAML file; empty fields keep the default.
type Prompts struct {
	Persona              string `yaml:"persona"`
	GroundingRules       string `yaml:"grounding_rules"`
	DeepLinkInstructions string `yaml:"deep_link_instructions"`
	DetailPersona        string `yaml:"detail_persona"`
	NoDocuments          string `yaml:"no_documents"`
	NotFound             string `yaml:"not_found"`
}

// DefaultPrompts returns the built-in prompts.
func DefaultPrompts() Prompts {
	return Prompts{
		Persona: "You are Gilda, a helpful virtual assistant. Your role is to answer questions ONLY based on the document content provided below.",
		GroundingRules: `IMPORTANT RULES:
- Only answer questions using information from the document content
- If the document content doesn't contain the answer, politely say so
- Never make up information or answer from general knowledge
- Be professional, friendly, and helpful
- Keep responses concise and relevant`,
		DeepLinkInstructions: `When you mention a specific item the reader may want to know more about (a course, product, policy, person or section), format it as a markdown link whose destination is "lookup:" followed by the URL-encoded item name, for example [CS 101](lookup:CS%20101). Only link items that appear in the document content.`,
		DetailPersona:        `You are a helpful knowledge assistant. Provide a detailed summary about "%s" based ONLY on the provided snippets. Include all relevant details, descriptions, and specifications found in the text. If the snippets do not mention it, say that the information was not found.`,
		NoDocuments:          "No documents have been uploaded yet. Please upload a PDF first so I can answer questions about it.",
		NotFound:             "Information not found.",
	}
}

// LoadPrompts returns the default prompts overlaid with the YAML file at path.
// An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	overlay(&prompts.Persona, override.Persona)
	overlay(&prompts.GroundingRules, override.GroundingRules)
	overlay(&prompts.DeepLinkInstructions, override.DeepLinkInstructions)
	overlay(&prompts.DetailPersona, override.DetailPersona)
	overlay(&prompts.NoDocuments, override.NoDocuments)
	overlay(&prompts.NotFound, override.NotFound)

	if strings.Count(prompts.DetailPersona, "%s") != 1 {
		return Prompts{}, fmt.Errorf("detail_persona must contain exactly one %%s placeholder")
	}
	return prompts, nil
}

func overlay(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// SystemPrompt builds the chat system message around the assembled context.
func (p Prompts) SystemPrompt(contextText string) string {
	var b strings.Builder
	b.WriteString(p.Persona)
	b.WriteString("\n\n")
	b.WriteString(p.GroundingRules)
	if p.DeepLinkInstructions != "" {
		b.WriteString("\n\n")
		b.WriteString(p.DeepLinkInstructions)
	}
	b.WriteString("\n\nDOCUMENT CONTENT:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nRemember: Only use the information from the document content above to answer questions.")
	return b.String()
}

// DetailSystemPrompt builds the system message for a deep-link lookup.
func (p Prompts) DetailSystemPrompt(query string) string {
	return fmt.Sprintf(p.DetailPersona, query)
}

// DetailUserMessage wraps retrieved snippets for a deep-link lookup.
func DetailUserMessage(contextText string) string {
	return "Snippets from the document:\n" + contextText
}
