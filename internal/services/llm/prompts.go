package llm

// Token budgets used when configuration leaves them unset.
const (
	FinalDocMaxTokens     = 16384
	CodeAnalysisMinTokens = 8192
	preambleMaxTokens     = 4096
)

// SystemPrompt frames every request.
const SystemPrompt = `You are a senior software engineer writing precise technical documentation in Markdown. Describe only what the supplied material shows. Never invent files, functions or interfaces.`

// Prompt templates take positional fmt arguments; see the Service methods for
// the argument order of each.
const (
	fileAnalysisPrompt = `Analyze the following source file and write a technical document for it.

File path: %[1]s
Language: %[2]s

` + "```" + `%[2]s
%[3]s
` + "```" + `

Cover these sections:
1. Overview: what the file is for and where it sits in the project.
2. Components: the types, functions and constants it defines, with their responsibilities.
3. Dependencies: imported modules and what they are used for.
4. Key logic: the important control flow, algorithms and data transformations.
5. Usage examples: short snippets showing how callers use it.
6. Interface identification: whether the file defines externally callable interfaces
   (HTTP routes, RPC handlers, websocket endpoints or MCP tools).

Finish with this block exactly, with no text after it:

<!-- API_START -->
contains API: yes
Endpoints:
- [GET] /path/{param} - short description
<!-- API_END -->

Rules for the block:
- Write "contains API: no" and omit the Endpoints list when the file defines no interfaces.
- List every interface once per line as "- [METHOD] /path - description".
- Use {param} for dynamic path segments.
- Use [WS] for websocket endpoints and [MCP] with the tool name as the path for MCP tools.`

	directorySummaryPrompt = `Write a summary document for the directory below, based on the documents of its files and subdirectories.

Directory path: %[1]s

Child documents:

%[2]s

Cover these sections:
1. Purpose: what this directory is responsible for.
2. Contents: one line per file or subdirectory describing its role.
3. Relationships: how the children depend on and call each other.
4. Entry points: where a reader or caller should start.`

	readmePrompt = `Write a README.md for the project below, based on the documents of its top-level modules.

Project name: %[1]s

Project structure:

` + "```" + `
%[2]s
` + "```" + `

Module documents:

%[3]s

Include: a one-paragraph introduction, main features, the architecture with the role of each top-level module, installation and quick start, configuration, and the directory layout. Keep commands and names consistent with the documents.`

	readingGuidePrompt = `Write a reading guide for the documentation of the project below: the order in which a newcomer should read the module documents, and why.

Project name: %[1]s

Project structure:

` + "```" + `
%[2]s
` + "```" + `

Module documents:

%[3]s

Include: a suggested reading path from entry points to supporting code, what to take away from each step, and shortcuts for readers who only need a specific area.`

	apiExtractPrompt = `Extract every externally callable interface from the file analysis below. Be exact: copy methods and paths as written and do not add interfaces that are not in the analysis.

File: %[1]s

Analysis:

%[2]s

Output a Markdown table with the columns | Method | Path | Description | Auth |, one row per interface. If the file defines no interfaces, output exactly "No interfaces defined".`

	apiSummaryPrompt = `Write the module-by-module narrative of the API reference for the project below. The interface overview table is produced separately, so do not repeat it.

Project name: %[1]s

Interfaces extracted per file:

%[2]s

Start your answer with the heading "## By module". Under it, add one "### <module>" section per source file or directory, describing the purpose of its interfaces, the authentication they need, and how they relate. After the modules, add a short "## Conventions" section covering shared request and response conventions.`

	usageExtractPrompt = `Extract detailed usage information for every interface in the file analysis below.

File: %[1]s

Analysis:

%[2]s

For each interface write a section whose heading is exactly "#### [METHOD] /path", followed by:
- Purpose: one sentence.
- Parameters: a table of path, query and body parameters with type, required flag and description.
- Request example: a curl command or JSON body.
- Response example: a JSON body.
- Errors: notable error responses.

Separate interfaces with a line containing only "---". If the file defines no interfaces, output exactly "No interfaces defined".`

	usageDocPrompt = `Write the complete API usage guide for the project below.

Project name: %[1]s

Every interface below must be documented, in this order:

%[2]s

Usage details extracted per file:

%[3]s

Structure:
1. "## Quick start": base URL, authentication and a first request.
2. "## Interface details": one "### <module>" section per source file, and under it one "#### METHOD /path" section per interface with parameters, a request example and a response example.
3. "## Error handling": status codes and error bodies.`

	usagePreamblePrompt = `Write the general part of the API usage guide for the project below. The per-interface details are assembled separately.

Project name: %[1]s

Sample of the extracted usage details:

%[2]s

Cover: quick start (base URL, authentication, a first request), common request and response conventions, error handling and status codes, and client examples in curl, Python and JavaScript. Do not write a section for any individual interface and do not use interface headings.`
)
