package mcpserver

// SpecFormat describes tag syntax and the report specification format for
// LLM consumers that write notes or report specs.
const SpecFormat = `# tagtracker Tag & Report Format

## Tags

- A tag is ` + "`" + `#` + "`" + ` followed by any run of non-whitespace characters: ` + "`" + `#urgent` + "`" + `, ` + "`" + `#in-progress` + "`" + `.
- Tokens that still contain ` + "`" + `#` + "`" + ` after the first are ignored, so markdown headers
  (` + "`" + `## Heading` + "`" + `) and ` + "`" + `#a#b` + "`" + ` are never tags.
- Tags are case sensitive.
- A tag of the form ` + "`" + `#YYYY-MM-DD` + "`" + ` is a date tag and feeds the calendar.
- Only files ending in ` + "`" + `.md` + "`" + ` are scanned; ` + "`" + `.git` + "`" + ` directories are skipped.

## Report specification

A YAML (or JSON with comments) mapping of output name to an ordered mapping of
view name to options. Each output is written to ` + "`" + `<name>.md` + "`" + ` under the search root.

` + "```" + `yaml
tag-tracker:
  calendar:
    months: 2
  kanBan:
    phases: [to-do, in-progress, finished]
    max_shown: 10
  lastOpened:
  tagSummary:
    filter: /^proj-/
weekly:
  kanban:
    filter: urgent, later
    path: archive/weekly   # write this entry into another output
` + "```" + `

Shared options:
- ` + "`" + `filter` + "`" + `: a comma or space separated tag list, or ` + "`" + `/regex/` + "`" + `. Date tags are kept
  for documents that match.
- ` + "`" + `path` + "`" + `: redirect the entry to another output.

View names are matched ignoring case, ` + "`" + `-` + "`" + ` and ` + "`" + `_` + "`" + ` (` + "`" + `kanBan` + "`" + ` = ` + "`" + `kan-ban` + "`" + `).

| view | options |
|---|---|
| calendar (cal) | months, directory, embed |
| kanBan | phases, max_shown |
| tagSummary | limit |
| lastOpened | workspace_file, limit |
`
