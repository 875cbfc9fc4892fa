package mcpserver

// RecipeFormatContract describes the recipe document format that LLM
// consumers should follow when creating or updating recipes.
const RecipeFormatContract = `# Cookbook Recipe Format

Every recipe is a Hugo content file under ` + "`" + `content/recipes/` + "`" + ` with TOML frontmatter.

## Structure

` + "```" + `markdown
+++
title = "Banana Bread"                 # REQUIRED
date = "2024-01-15"                    # ISO date, set on creation
draft = false
tags = ["baking", "breakfast"]         # OPTIONAL – array of strings
categories = ["recipes"]               # always contains "recipes"
description = "Moist and easy"
prep_time = "15 minutes"               # OPTIONAL
cook_time = "1 hour"                   # OPTIONAL
total_time = "1 hour 15 minutes"       # OPTIONAL
servings = "8"                         # OPTIONAL
+++

## Ingredients

* 3 ripe bananas
* 2 cups flour

## Instructions

1. Mash the bananas.
2. Bake for an hour.

## Notes

Keeps for three days.
` + "```" + `

## Rules

1. **Frontmatter is mandatory.** The ` + "`" + `+++` + "`" + ` fences must be the first line of the
   file and must close before the body.
2. **` + "`" + `title` + "`" + ` is required.** The filename is derived from it on creation
   (lowercase, hyphenated, ` + "`" + `.md` + "`" + `) and never changes afterwards.
3. **Values** are double-quoted strings, ` + "`" + `true` + "`" + `/` + "`" + `false` + "`" + `, numbers or
   arrays of those. Escape ` + "`" + `"` + "`" + ` and ` + "`" + `\` + "`" + ` inside strings.
4. **The body** should contain ` + "`" + `## Ingredients` + "`" + ` and ` + "`" + `## Instructions` + "`" + ` sections.
5. **Updates replace the whole document.** Read the recipe first, edit it, and send
   it back complete. Pass the checksum you read to avoid overwriting concurrent edits.
6. **Encoding** is UTF-8.
`
