package pack

const manifestTemplate = `---
id: {{DOMAIN}}.MANIFEST
pack_id: {{DOMAIN}}
name: {{DOMAIN}} Pack
status: draft
created: {{TODAY}}
last_updated: {{TODAY}}
---
# {{DOMAIN}} Pack Manifest

**Pack ID**: ` + "`{{DOMAIN}}`" + `

## Scope
[What this pack covers and what it leaves out]

## Bounded Context
See ontology.md.

## Entity Index

| ID | Name | Kind | Summary | Status |
|----|------|------|---------|--------|
`

const ontologyTemplate = `# {{DOMAIN}} Ontology

## Bounded Context
[The context in which the terms of this pack hold]

## Terms

### [Term]
[Definition]
`

const entityTemplate = `---
id: {{DOMAIN}}.{{KIND}}.001
name: "<Name>"
summary: "<One sentence>"
status: draft
created: {{TODAY}}
last_updated: {{TODAY}}
fgr:
  formality: F0
  scope: "<Where the claim holds>"
  reliability: "<Evidence behind the claim>"
---
## [{{DOMAIN}}.{{KIND}}.001] <Name>

[Body]
`
