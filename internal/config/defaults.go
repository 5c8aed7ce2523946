package config

// GetDefaultSystemPrompt returns the system prompt sent with every content call
func GetDefaultSystemPrompt() string {
	return `You are an experienced university lecturer and textbook author. You write clear, rigorous, well-structured academic prose in Markdown. You never mention that you are an AI, never add meta commentary about the writing task, and never repeat the heading you were asked to write under.`
}

// GetDefaultTopicExpansionTemplate returns the template for expanding a section into topics
func GetDefaultTopicExpansionTemplate() string {
	return `You are planning section {{.SectionNumber}} "{{.SectionTitle}}" of the chapter "{{.Chapter}}" in a university textbook.

List exactly {{.Count}} distinct topics that together cover this section in a logical teaching order, from foundations to advanced material.

Return ONLY a numbered list, one topic per line, in the form:
1. Topic title: one-sentence description
2. Topic title: one-sentence description`
}

// GetDefaultSubsectionExpansionTemplate returns the template for expanding a topic into subsections
func GetDefaultSubsectionExpansionTemplate() string {
	return `The textbook section "{{.SectionTitle}}" contains the topic {{.TopicIndex}}. "{{.TopicTitle}}".

Break this topic into exactly {{.Count}} subsections that each deserve about a page of explanation.

Return ONLY a numbered list, one subsection title per line:
1. Subsection title
2. Subsection title`
}

// GetDefaultIntroductionTemplate returns the template for the section introduction
func GetDefaultIntroductionTemplate() string {
	return `Write the introduction to section {{.SectionNumber}} "{{.SectionTitle}}" of the chapter "{{.Chapter}}".

The section covers these topics in order:
{{.TopicList}}

Motivate the section, state what the reader will be able to do after studying it, and preview how the topics build on each other. Write 400 to 600 words of continuous prose. Do not include a heading.`
}

// GetDefaultSubsectionTemplate returns the template for one subsection
func GetDefaultSubsectionTemplate() string {
	return `You are writing section {{.SectionNumber}} "{{.SectionTitle}}" of the chapter "{{.Chapter}}".

Current topic: {{.TopicIndex}}. {{.TopicTitle}}
Write subsection {{.TopicIndex}}.{{.SubsectionIndex}}: "{{.SubsectionTitle}}".

Requirements:
- About {{.TargetWords}} words
- Explain concepts precisely, with worked examples or derivations where they help
- Use paragraphs; use lists or tables only when they genuinely aid clarity
- Do not write the subsection heading; start directly with the content`
}

// GetDefaultSummaryTemplate returns the template for the closing summary
func GetDefaultSummaryTemplate() string {
	return `Write the closing "Summary and Reflection" for section {{.SectionNumber}} "{{.SectionTitle}}".

The section covered these topics:
{{.TopicList}}

Summarise the key ideas, connect them to each other, and end with three to five reflection questions for the reader. Write 500 to 800 words. Do not include a heading.`
}
