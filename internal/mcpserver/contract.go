package mcpserver

// QuerySyntaxGuide describes the search language accepted by search_tracks.
const QuerySyntaxGuide = `# tonearm query syntax

search_tracks takes a free-text query plus optional facet filters.

## Text

- Empty text matches every track.
- Bare words match any indexed text field: ` + "`" + `beetlebum` + "`" + `.
- Quoted phrases match in order: ` + "`" + `"song 2"` + "`" + `.
- Field scoping: ` + "`" + `artist:blur` + "`" + `, ` + "`" + `album:"parklife"` + "`" + `, ` + "`" + `title:clocks` + "`" + `.
- Required and excluded terms: ` + "`" + `+blur -live` + "`" + `.
- Numeric comparisons: ` + "`" + `year:>=1995 year:<2000` + "`" + `.
- A query that does not parse is searched as a literal phrase with quotes removed.
- A quoted absolute path finds exactly that file.

Searchable fields: name, title, artist, album, genres, abs_path_text.

## Facets

Facets are slash-delimited paths. A literal "/" inside a value is written "\/"
and a literal "\" as "\\".

| root | example |
|---|---|
| /artist | /artist/AC\/DC |
| /album | /album/Parklife |
| /year | /year/1994 |
| /genre | /genre/17 (ID3v1 index) or /genre/shoegaze (free text) |

Passing a root (e.g. ` + "`" + `/year` + "`" + `) returns the 50 most frequent values under it.
Passing several facets keeps tracks matching at least one of them.

## Ordering

order may be created_at, modified_at or indexed_at (or the *_date aliases),
direction asc or desc (default desc). Without order, results are ranked by
relevance.
`
